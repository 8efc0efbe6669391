package sqlitefile

import (
	"encoding/binary"
	"fmt"
)

// Record is a decoded record: a header of serial types followed by one
// value per type.
type Record struct {
	HeaderLength uint64
	Types        []SerialType
	Values       []ColumnValue
	BodyLength   uint64
}

// PayloadLength is the number of bytes the record occupies.
func (r Record) PayloadLength() uint64 {
	return r.HeaderLength + r.BodyLength
}

// DecodeRecord decodes the record starting at offset and returns it with
// the number of bytes consumed.
//
// The header length varint counts its own encoding, so serial types are
// read until the running total equals the declared header length.
func DecodeRecord(buf []byte, offset int) (Record, int, error) {
	headerLength, n, err := DecodeVarint(buf, offset)
	if err != nil {
		return Record{}, 0, fmt.Errorf("record header length: %w", err)
	}

	var (
		aRecord   = Record{HeaderLength: headerLength}
		bytesRead = uint64(n)
		cursor    = offset + n
	)
	for bytesRead < headerLength {
		code, n, err := DecodeVarint(buf, cursor)
		if err != nil {
			return Record{}, 0, fmt.Errorf("serial type %d: %w", len(aRecord.Types), err)
		}
		cursor += n
		bytesRead += uint64(n)
		if bytesRead > headerLength {
			return Record{}, 0, fmt.Errorf("%w: read %d header bytes, declared %d", ErrRecordHeaderLengthMismatch, bytesRead, headerLength)
		}

		st, err := DecodeSerialType(code)
		if err != nil {
			return Record{}, 0, fmt.Errorf("serial type %d: %w", len(aRecord.Types), err)
		}
		aRecord.Types = append(aRecord.Types, st)
		aRecord.BodyLength += st.Len()
	}
	if bytesRead != headerLength {
		return Record{}, 0, fmt.Errorf("%w: read %d header bytes, declared %d", ErrRecordHeaderLengthMismatch, bytesRead, headerLength)
	}

	aRecord.Values = make([]ColumnValue, 0, len(aRecord.Types))
	for i, st := range aRecord.Types {
		aValue, err := DecodeColumnValue(buf, st, cursor)
		if err != nil {
			return Record{}, 0, fmt.Errorf("column %d: %w", i, err)
		}
		cursor += int(st.Len())
		aRecord.Values = append(aRecord.Values, aValue)
	}

	return aRecord, cursor - offset, nil
}

// Cell is one row of a table leaf page.
type Cell struct {
	PayloadLength uint64
	RowID         int64
	Record
}

// InteriorCell routes keys less than or equal to Key to LeftChild.
type InteriorCell struct {
	LeftChild PageNumber
	Key       int64
}

// IndexCell is a cell of an index page; LeftChild is zero on leaves.
type IndexCell struct {
	LeftChild     PageNumber
	PayloadLength uint64
	Record
}

// maxLocalTablePayload is the largest table leaf payload stored entirely
// on the page.
func maxLocalTablePayload(usable int) uint64 {
	return uint64(usable - 35)
}

// maxLocalIndexPayload is the largest index payload stored entirely on
// the page.
func maxLocalIndexPayload(usable int) uint64 {
	return uint64((usable-12)*64/255 - 23)
}

// DecodeTableLeafCell decodes payload length, rowid and record of the
// table leaf cell at offset. usable is the page size minus reserved bytes.
func DecodeTableLeafCell(buf []byte, offset, usable int) (Cell, error) {
	payloadLength, n, err := DecodeVarint(buf, offset)
	if err != nil {
		return Cell{}, fmt.Errorf("payload length: %w", err)
	}
	cursor := offset + n

	rowID, n, err := DecodeVarint(buf, cursor)
	if err != nil {
		return Cell{}, fmt.Errorf("rowid: %w", err)
	}
	cursor += n

	if payloadLength > maxLocalTablePayload(usable) {
		return Cell{}, fmt.Errorf("%w: rowid %d has %d byte payload", ErrOverflowPayload, int64(rowID), payloadLength)
	}

	aRecord, _, err := DecodeRecord(buf, cursor)
	if err != nil {
		return Cell{}, fmt.Errorf("rowid %d: %w", int64(rowID), err)
	}
	if aRecord.PayloadLength() != payloadLength {
		return Cell{}, fmt.Errorf("%w: rowid %d declares %d payload bytes, record has %d", ErrCorruptPage, int64(rowID), payloadLength, aRecord.PayloadLength())
	}

	return Cell{
		PayloadLength: payloadLength,
		RowID:         int64(rowID),
		Record:        aRecord,
	}, nil
}

// DecodeTableInteriorCell decodes a 4 byte child page number followed by
// the rowid key varint.
func DecodeTableInteriorCell(buf []byte, offset int) (InteriorCell, error) {
	if offset+4 > len(buf) {
		return InteriorCell{}, fmt.Errorf("%w: interior cell at offset %d overruns page", ErrCorruptPage, offset)
	}
	child := PageNumber(binary.BigEndian.Uint32(buf[offset:]))
	if child == 0 {
		return InteriorCell{}, fmt.Errorf("%w: interior cell at offset %d points to page 0", ErrCorruptPage, offset)
	}

	key, _, err := DecodeVarint(buf, offset+4)
	if err != nil {
		return InteriorCell{}, fmt.Errorf("interior cell key: %w", err)
	}

	return InteriorCell{
		LeftChild: child,
		Key:       int64(key),
	}, nil
}

// DecodeIndexCell decodes an index leaf cell, or an index interior cell
// when interior is set.
func DecodeIndexCell(buf []byte, offset, usable int, interior bool) (IndexCell, error) {
	var (
		aCell  IndexCell
		cursor = offset
	)
	if interior {
		if offset+4 > len(buf) {
			return IndexCell{}, fmt.Errorf("%w: index cell at offset %d overruns page", ErrCorruptPage, offset)
		}
		aCell.LeftChild = PageNumber(binary.BigEndian.Uint32(buf[offset:]))
		if aCell.LeftChild == 0 {
			return IndexCell{}, fmt.Errorf("%w: index cell at offset %d points to page 0", ErrCorruptPage, offset)
		}
		cursor += 4
	}

	payloadLength, n, err := DecodeVarint(buf, cursor)
	if err != nil {
		return IndexCell{}, fmt.Errorf("payload length: %w", err)
	}
	cursor += n

	if payloadLength > maxLocalIndexPayload(usable) {
		return IndexCell{}, fmt.Errorf("%w: index cell at offset %d has %d byte payload", ErrOverflowPayload, offset, payloadLength)
	}

	aRecord, _, err := DecodeRecord(buf, cursor)
	if err != nil {
		return IndexCell{}, err
	}
	if aRecord.PayloadLength() != payloadLength {
		return IndexCell{}, fmt.Errorf("%w: index cell at offset %d declares %d payload bytes, record has %d", ErrCorruptPage, offset, payloadLength, aRecord.PayloadLength())
	}
	aCell.PayloadLength = payloadLength
	aCell.Record = aRecord

	return aCell, nil
}
