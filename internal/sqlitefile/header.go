package sqlitefile

import (
	"encoding/binary"
	"fmt"
)

const (
	DatabaseHeaderSize = 100
	MinPageSize        = 512
	MaxPageSize        = 65536

	headerMagic = "SQLite format 3\x00"
)

type TextEncoding uint32

const (
	EncodingUTF8    TextEncoding = 1
	EncodingUTF16LE TextEncoding = 2
	EncodingUTF16BE TextEncoding = 3
)

// DatabaseHeader is the 100 byte prefix of the database file.
type DatabaseHeader struct {
	PageSize      uint32 // stored as u16, 1 means 65536
	WriteVersion  uint8
	ReadVersion   uint8
	ReservedBytes uint8
	ChangeCounter uint32
	PageCount     uint32 // only trusted by SQLite when VersionValidFor matches ChangeCounter
	FreelistTrunk PageNumber
	FreelistPages uint32
	SchemaCookie  uint32
	SchemaFormat  uint32
	TextEncoding  TextEncoding
	UserVersion   uint32
	ApplicationID uint32
	VersionValid  uint32
	SQLiteVersion uint32
}

// UsableSize is the page size minus the reserved bytes at the end of
// every page.
func (h DatabaseHeader) UsableSize() int {
	return int(h.PageSize) - int(h.ReservedBytes)
}

func UnmarshalDatabaseHeader(buf []byte, dbHeader *DatabaseHeader) error {
	if len(buf) < DatabaseHeaderSize {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrCorruptHeader, DatabaseHeaderSize, len(buf))
	}
	if string(buf[0:16]) != headerMagic {
		return fmt.Errorf("%w: bad magic string %q", ErrCorruptHeader, buf[0:16])
	}

	pageSize := uint32(binary.BigEndian.Uint16(buf[16:18]))
	if pageSize == 1 {
		pageSize = MaxPageSize
	}
	if pageSize < MinPageSize || pageSize > MaxPageSize || pageSize&(pageSize-1) != 0 {
		return fmt.Errorf("%w: invalid page size %d", ErrCorruptHeader, pageSize)
	}

	*dbHeader = DatabaseHeader{
		PageSize:      pageSize,
		WriteVersion:  buf[18],
		ReadVersion:   buf[19],
		ReservedBytes: buf[20],
		ChangeCounter: binary.BigEndian.Uint32(buf[24:28]),
		PageCount:     binary.BigEndian.Uint32(buf[28:32]),
		FreelistTrunk: PageNumber(binary.BigEndian.Uint32(buf[32:36])),
		FreelistPages: binary.BigEndian.Uint32(buf[36:40]),
		SchemaCookie:  binary.BigEndian.Uint32(buf[40:44]),
		SchemaFormat:  binary.BigEndian.Uint32(buf[44:48]),
		TextEncoding:  TextEncoding(binary.BigEndian.Uint32(buf[56:60])),
		UserVersion:   binary.BigEndian.Uint32(buf[60:64]),
		ApplicationID: binary.BigEndian.Uint32(buf[68:72]),
		VersionValid:  binary.BigEndian.Uint32(buf[92:96]),
		SQLiteVersion: binary.BigEndian.Uint32(buf[96:100]),
	}

	if dbHeader.UsableSize() < 480 {
		return fmt.Errorf("%w: usable page size %d below 480", ErrCorruptHeader, dbHeader.UsableSize())
	}

	// A database with no schema yet stores 0 until the first table is created.
	if dbHeader.TextEncoding != 0 && dbHeader.TextEncoding != EncodingUTF8 {
		return fmt.Errorf("%w: %d", ErrUnsupportedEncoding, dbHeader.TextEncoding)
	}

	return nil
}
