package sqlitefile

import (
	"encoding/binary"
	"fmt"
)

// PageType is the B-tree page kind stored in the first header byte.
type PageType byte

const (
	IndexInterior PageType = 0x02
	TableInterior PageType = 0x05
	IndexLeaf     PageType = 0x0a
	TableLeaf     PageType = 0x0d
)

const (
	leafPageHeaderSize     = 8
	interiorPageHeaderSize = 12
)

func ParsePageType(b byte) (PageType, error) {
	switch PageType(b) {
	case IndexInterior, TableInterior, IndexLeaf, TableLeaf:
		return PageType(b), nil
	default:
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidPageType, b)
	}
}

func (t PageType) IsLeaf() bool {
	return t == TableLeaf || t == IndexLeaf
}

func (t PageType) IsInterior() bool {
	return t == TableInterior || t == IndexInterior
}

func (t PageType) IsTable() bool {
	return t == TableLeaf || t == TableInterior
}

// HeaderSize is 12 bytes for interior pages, which carry the right-most
// child pointer, and 8 bytes for leaves.
func (t PageType) HeaderSize() int {
	if t.IsInterior() {
		return interiorPageHeaderSize
	}
	return leafPageHeaderSize
}

func (t PageType) String() string {
	switch t {
	case IndexInterior:
		return "index interior"
	case TableInterior:
		return "table interior"
	case IndexLeaf:
		return "index leaf"
	case TableLeaf:
		return "table leaf"
	default:
		return fmt.Sprintf("PageType(0x%02x)", byte(t))
	}
}

type PageHeader struct {
	Type             PageType
	FirstFreeblock   uint16
	CellCount        uint16
	CellContentStart uint32 // 0 on disk means 65536
	FragmentedBytes  uint8
	RightMostChild   PageNumber // interior pages only
}

func (h PageHeader) Size() int {
	return h.Type.HeaderSize()
}

// DecodePageHeader decodes the B-tree page header starting at offset,
// which is 100 on page 1 and 0 everywhere else.
func DecodePageHeader(buf []byte, offset int) (PageHeader, error) {
	if offset < 0 || offset+leafPageHeaderSize > len(buf) {
		return PageHeader{}, fmt.Errorf("%w: page header at offset %d overruns %d byte page", ErrCorruptPage, offset, len(buf))
	}

	pageType, err := ParsePageType(buf[offset])
	if err != nil {
		return PageHeader{}, err
	}

	aHeader := PageHeader{
		Type:             pageType,
		FirstFreeblock:   binary.BigEndian.Uint16(buf[offset+1:]),
		CellCount:        binary.BigEndian.Uint16(buf[offset+3:]),
		CellContentStart: uint32(binary.BigEndian.Uint16(buf[offset+5:])),
		FragmentedBytes:  buf[offset+7],
	}
	if aHeader.CellContentStart == 0 {
		aHeader.CellContentStart = 65536
	}

	if pageType.IsInterior() {
		if offset+interiorPageHeaderSize > len(buf) {
			return PageHeader{}, fmt.Errorf("%w: interior page header at offset %d overruns %d byte page", ErrCorruptPage, offset, len(buf))
		}
		aHeader.RightMostChild = PageNumber(binary.BigEndian.Uint32(buf[offset+8:]))
		if aHeader.RightMostChild == 0 {
			return PageHeader{}, fmt.Errorf("%w: right-most child points to page 0", ErrCorruptPage)
		}
	}

	return aHeader, nil
}
