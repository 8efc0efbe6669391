package sqlitefile

import (
	"encoding/binary"
	"fmt"
)

// PageNumber is a 1-based page index; page 1 holds the database header
// and the root of the schema table.
type PageNumber uint32

const SchemaPageNumber PageNumber = 1

// HeaderOffset is where the B-tree page header starts within the page.
func (n PageNumber) HeaderOffset() int {
	if n == SchemaPageNumber {
		return DatabaseHeaderSize
	}
	return 0
}

// FileOffset is the absolute position of the page in the database file.
func (n PageNumber) FileOffset(pageSize int) int64 {
	return int64(n-1) * int64(pageSize)
}

type Page struct {
	Number       PageNumber
	Header       PageHeader
	CellPointers []uint16

	Cells         []Cell         // table leaf pages
	InteriorCells []InteriorCell // table interior pages
	IndexCells    []IndexCell    // index pages

	leftChildren []PageNumber
}

// Children lists child page numbers of an interior page in cell order,
// right-most child last. Leaves have no children.
func (p *Page) Children() []PageNumber {
	if !p.Header.Type.IsInterior() {
		return nil
	}
	children := make([]PageNumber, 0, len(p.leftChildren)+1)
	children = append(children, p.leftChildren...)
	return append(children, p.Header.RightMostChild)
}

// DecodePage decodes a whole page: header, cell pointer array and every
// cell. buf must hold exactly one page.
func DecodePage(buf []byte, number PageNumber, usable int) (*Page, error) {
	aPage, err := DecodePageLayout(buf, number)
	if err != nil {
		return nil, err
	}

	switch aPage.Header.Type {
	case TableLeaf:
		aPage.Cells = make([]Cell, 0, len(aPage.CellPointers))
		for i, ptr := range aPage.CellPointers {
			aCell, err := DecodeTableLeafCell(buf, int(ptr), usable)
			if err != nil {
				return nil, fmt.Errorf("page %d cell %d: %w", number, i, err)
			}
			aPage.Cells = append(aPage.Cells, aCell)
		}
	case TableInterior:
		// decoded with the layout
	case IndexLeaf, IndexInterior:
		interior := aPage.Header.Type == IndexInterior
		aPage.IndexCells = make([]IndexCell, 0, len(aPage.CellPointers))
		for i, ptr := range aPage.CellPointers {
			aCell, err := DecodeIndexCell(buf, int(ptr), usable, interior)
			if err != nil {
				return nil, fmt.Errorf("page %d cell %d: %w", number, i, err)
			}
			aPage.IndexCells = append(aPage.IndexCells, aCell)
		}
	}

	return aPage, nil
}

// DecodePageLayout decodes the page header, the cell pointer array and the
// child links of interior pages without touching record payloads.
func DecodePageLayout(buf []byte, number PageNumber) (*Page, error) {
	if number == 0 {
		return nil, fmt.Errorf("%w: page number 0", ErrCorruptPage)
	}

	offset := number.HeaderOffset()
	aHeader, err := DecodePageHeader(buf, offset)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", number, err)
	}

	var (
		pointerStart = offset + aHeader.Size()
		pointerEnd   = pointerStart + 2*int(aHeader.CellCount)
	)
	if pointerEnd > len(buf) {
		return nil, fmt.Errorf("%w: page %d cell pointer array of %d cells overruns %d byte page", ErrCorruptPage, number, aHeader.CellCount, len(buf))
	}

	aPage := &Page{
		Number:       number,
		Header:       aHeader,
		CellPointers: make([]uint16, 0, aHeader.CellCount),
	}
	for i := pointerStart; i < pointerEnd; i += 2 {
		ptr := binary.BigEndian.Uint16(buf[i:])
		if int(ptr) < pointerEnd || int(ptr) >= len(buf) {
			return nil, fmt.Errorf("%w: page %d cell pointer %d out of range [%d, %d)", ErrCorruptPage, number, ptr, pointerEnd, len(buf))
		}
		aPage.CellPointers = append(aPage.CellPointers, ptr)
	}

	switch aHeader.Type {
	case TableInterior:
		aPage.InteriorCells = make([]InteriorCell, 0, len(aPage.CellPointers))
		for i, ptr := range aPage.CellPointers {
			aCell, err := DecodeTableInteriorCell(buf, int(ptr))
			if err != nil {
				return nil, fmt.Errorf("page %d cell %d: %w", number, i, err)
			}
			aPage.InteriorCells = append(aPage.InteriorCells, aCell)
			aPage.leftChildren = append(aPage.leftChildren, aCell.LeftChild)
		}
	case IndexInterior:
		// Index interior cells start with the child pointer too, the key
		// record after it is left for DecodePage.
		for i, ptr := range aPage.CellPointers {
			if int(ptr)+4 > len(buf) {
				return nil, fmt.Errorf("%w: page %d cell %d overruns page", ErrCorruptPage, number, i)
			}
			child := PageNumber(binary.BigEndian.Uint32(buf[ptr:]))
			if child == 0 {
				return nil, fmt.Errorf("%w: page %d cell %d points to page 0", ErrCorruptPage, number, i)
			}
			aPage.leftChildren = append(aPage.leftChildren, child)
		}
	}

	return aPage, nil
}
