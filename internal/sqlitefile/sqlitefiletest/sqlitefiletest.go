// Package sqlitefiletest encodes small database files in the SQLite on-disk
// format so decoders can be tested against byte-exact fixtures.
package sqlitefiletest

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const (
	IndexInterior byte = 0x02
	TableInterior byte = 0x05
	IndexLeaf     byte = 0x0a
	TableLeaf     byte = 0x0d
)

const headerSize = 100

// Raw is a column with an explicit serial type code and body bytes, for
// fixtures the natural encoding would not produce.
type Raw struct {
	Code uint64
	Data []byte
}

// EncodeVarint is the inverse of the 1 to 9 byte big-endian varint
// decoding. Values of 2^56 and above take the 9 byte form.
func EncodeVarint(v uint64) []byte {
	if v > 0x00ffffffffffffff {
		buf := make([]byte, 9)
		buf[8] = byte(v)
		v >>= 8
		for i := 7; i >= 0; i-- {
			buf[i] = byte(v&0x7f) | 0x80
			v >>= 7
		}
		return buf
	}

	var (
		groups [8]byte
		n      int
	)
	for {
		groups[n] = byte(v & 0x7f)
		n += 1
		v >>= 7
		if v == 0 {
			break
		}
	}

	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = groups[n-1-i]
		if i < n-1 {
			buf[i] |= 0x80
		}
	}
	return buf
}

// Record encodes values as a record. Supported values are nil, int, int64,
// float64, string, []byte and Raw.
func Record(values ...any) []byte {
	var (
		types []byte
		body  []byte
	)
	for _, value := range values {
		code, data := encodeValue(value)
		types = append(types, EncodeVarint(code)...)
		body = append(body, data...)
	}

	// The header length counts its own varint.
	headerLength := uint64(len(types) + 1)
	for uint64(len(EncodeVarint(headerLength))+len(types)) != headerLength {
		headerLength = uint64(len(EncodeVarint(headerLength)) + len(types))
	}

	out := EncodeVarint(headerLength)
	out = append(out, types...)
	return append(out, body...)
}

func encodeValue(value any) (uint64, []byte) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return encodeInt(int64(v))
	case int64:
		return encodeInt(v)
	case float64:
		data := make([]byte, 8)
		binary.BigEndian.PutUint64(data, math.Float64bits(v))
		return 7, data
	case string:
		return uint64(len(v))*2 + 13, []byte(v)
	case []byte:
		return uint64(len(v))*2 + 12, v
	case Raw:
		return v.Code, v.Data
	default:
		panic(fmt.Sprintf("unsupported record value %T", value))
	}
}

func encodeInt(v int64) (uint64, []byte) {
	var (
		code  uint64
		width int
	)
	switch {
	case v == 0:
		return 8, nil
	case v == 1:
		return 9, nil
	case v >= math.MinInt8 && v <= math.MaxInt8:
		code, width = 1, 1
	case v >= math.MinInt16 && v <= math.MaxInt16:
		code, width = 2, 2
	case v >= -1<<23 && v < 1<<23:
		code, width = 3, 3
	case v >= math.MinInt32 && v <= math.MaxInt32:
		code, width = 4, 4
	case v >= -1<<47 && v < 1<<47:
		code, width = 5, 6
	default:
		code, width = 6, 8
	}

	full := make([]byte, 8)
	binary.BigEndian.PutUint64(full, uint64(v))
	return code, full[8-width:]
}

// TableLeafCell encodes payload length, rowid and the record of values.
func TableLeafCell(rowID int64, values ...any) []byte {
	payload := Record(values...)
	out := EncodeVarint(uint64(len(payload)))
	out = append(out, EncodeVarint(uint64(rowID))...)
	return append(out, payload...)
}

// TableInteriorCell encodes a child page number and its rowid key.
func TableInteriorCell(child uint32, key int64) []byte {
	out := binary.BigEndian.AppendUint32(nil, child)
	return append(out, EncodeVarint(uint64(key))...)
}

func IndexLeafCell(values ...any) []byte {
	payload := Record(values...)
	out := EncodeVarint(uint64(len(payload)))
	return append(out, payload...)
}

func IndexInteriorCell(child uint32, values ...any) []byte {
	out := binary.BigEndian.AppendUint32(nil, child)
	return append(out, IndexLeafCell(values...)...)
}

// SchemaCell encodes one row of the schema table.
func SchemaCell(rowID int64, objectType, name, tableName string, rootPage int64, sql string) []byte {
	var ddl any = sql
	if sql == "" {
		ddl = nil
	}
	return TableLeafCell(rowID, objectType, name, tableName, rootPage, ddl)
}

// Page lays out a B-tree page: the header at headerOffset, the cell
// pointer array right after it and cells packed from the end of the page
// towards the front. It panics when the cells do not fit.
func Page(pageSize, headerOffset int, pageType byte, rightMost uint32, cells ...[]byte) []byte {
	buf := make([]byte, pageSize)

	pageHeaderSize := 8
	if pageType == TableInterior || pageType == IndexInterior {
		pageHeaderSize = 12
	}
	var (
		pointerStart = headerOffset + pageHeaderSize
		pointerEnd   = pointerStart + 2*len(cells)
		contentStart = pageSize
	)
	for i, aCell := range cells {
		contentStart -= len(aCell)
		if contentStart < pointerEnd {
			panic(fmt.Sprintf("%d cells do not fit into a %d byte page", len(cells), pageSize))
		}
		copy(buf[contentStart:], aCell)
		binary.BigEndian.PutUint16(buf[pointerStart+2*i:], uint16(contentStart))
	}

	buf[headerOffset] = pageType
	binary.BigEndian.PutUint16(buf[headerOffset+3:], uint16(len(cells)))
	binary.BigEndian.PutUint16(buf[headerOffset+5:], uint16(contentStart)) // 65536 wraps to 0
	if pageHeaderSize == 12 {
		binary.BigEndian.PutUint32(buf[headerOffset+8:], rightMost)
	}

	return buf
}

// DatabaseHeader encodes a UTF-8, schema format 4 database header.
func DatabaseHeader(pageSize int, pageCount uint32) []byte {
	buf := make([]byte, headerSize)
	copy(buf, "SQLite format 3\x00")

	encodedSize := uint16(pageSize)
	if pageSize == 65536 {
		encodedSize = 1
	}
	binary.BigEndian.PutUint16(buf[16:], encodedSize)
	buf[18], buf[19] = 1, 1
	buf[21], buf[22], buf[23] = 64, 32, 32
	binary.BigEndian.PutUint32(buf[24:], 1)
	binary.BigEndian.PutUint32(buf[28:], pageCount)
	binary.BigEndian.PutUint32(buf[44:], 4)
	binary.BigEndian.PutUint32(buf[56:], 1)
	binary.BigEndian.PutUint32(buf[92:], 1)
	binary.BigEndian.PutUint32(buf[96:], 3045000)

	return buf
}

// Builder assembles a database file. Page 1 holds the header and the
// schema table, pages added with AddPage follow from page 2 on.
type Builder struct {
	pageSize int
	schema   [][]byte
	rootPage []byte
	pages    [][]byte
}

func New(pageSize int) *Builder {
	return &Builder{pageSize: pageSize}
}

func (b *Builder) PageSize() int {
	return b.pageSize
}

// AddPage appends a page and returns its page number.
func (b *Builder) AddPage(pageType byte, rightMost uint32, cells ...[]byte) uint32 {
	b.pages = append(b.pages, Page(b.pageSize, 0, pageType, rightMost, cells...))
	return uint32(len(b.pages) + 1)
}

// AddRawPage appends page bytes as they are, padded to the page size.
func (b *Builder) AddRawPage(data []byte) uint32 {
	buf := make([]byte, b.pageSize)
	copy(buf, data)
	b.pages = append(b.pages, buf)
	return uint32(len(b.pages) + 1)
}

// AddSchemaEntry appends a row to the schema table on page 1.
func (b *Builder) AddSchemaEntry(objectType, name, tableName string, rootPage uint32, sql string) {
	rowID := int64(len(b.schema) + 1)
	b.schema = append(b.schema, SchemaCell(rowID, objectType, name, tableName, int64(rootPage), sql))
}

// AddTable stores rows in a single leaf page with rowids 1..n and
// registers the table in the schema.
func (b *Builder) AddTable(name, sql string, rows ...[]any) uint32 {
	cells := make([][]byte, 0, len(rows))
	for i, aRow := range rows {
		cells = append(cells, TableLeafCell(int64(i+1), aRow...))
	}
	root := b.AddPage(TableLeaf, 0, cells...)
	b.AddSchemaEntry("table", name, name, root, sql)
	return root
}

// SetRootPage replaces the generated schema leaf on page 1, for example
// with an interior page when the schema spans several pages.
func (b *Builder) SetRootPage(pageType byte, rightMost uint32, cells ...[]byte) {
	b.rootPage = Page(b.pageSize, headerSize, pageType, rightMost, cells...)
}

func (b *Builder) Bytes() []byte {
	root := b.rootPage
	if root == nil {
		root = Page(b.pageSize, headerSize, TableLeaf, 0, b.schema...)
	}

	pageCount := uint32(len(b.pages) + 1)
	out := make([]byte, 0, int(pageCount)*b.pageSize)
	out = append(out, root...)
	copy(out, DatabaseHeader(b.pageSize, pageCount))
	for _, aPage := range b.pages {
		out = append(out, aPage...)
	}
	return out
}

// WriteFile writes the database into a temporary directory owned by the
// test and returns its path.
func (b *Builder) WriteFile(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	if err := os.WriteFile(path, b.Bytes(), 0600); err != nil {
		t.Fatalf("write test database: %v", err)
	}
	return path
}
