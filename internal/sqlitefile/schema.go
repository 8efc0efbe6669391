package sqlitefile

import (
	"fmt"
	"strings"
)

const (
	SchemaTableName       = "sqlite_schema"
	LegacySchemaTableName = "sqlite_master"

	reservedNamePrefix = "sqlite_"
	schemaColumns      = 5
)

type SchemaType int

const (
	SchemaTable SchemaType = iota + 1
	SchemaIndex
	SchemaView
	SchemaTrigger
)

func (t SchemaType) String() string {
	switch t {
	case SchemaTable:
		return "table"
	case SchemaIndex:
		return "index"
	case SchemaView:
		return "view"
	case SchemaTrigger:
		return "trigger"
	default:
		return fmt.Sprintf("SchemaType(%d)", int(t))
	}
}

func parseSchemaType(s string) (SchemaType, error) {
	switch s {
	case "table":
		return SchemaTable, nil
	case "index":
		return SchemaIndex, nil
	case "view":
		return SchemaView, nil
	case "trigger":
		return SchemaTrigger, nil
	default:
		return 0, fmt.Errorf("%w: unknown object type %q", ErrCorruptSchema, s)
	}
}

// SchemaEntry is one row of the schema table:
// (type, name, tbl_name, rootpage, sql).
type SchemaEntry struct {
	Type      SchemaType
	Name      string
	TableName string
	RootPage  PageNumber // 0 for views and triggers
	SQL       string     // empty for automatic indexes
}

func scanSchema(aCell Cell) (SchemaEntry, error) {
	if len(aCell.Values) < schemaColumns {
		return SchemaEntry{}, fmt.Errorf("%w: row %d has %d columns", ErrCorruptSchema, aCell.RowID, len(aCell.Values))
	}

	typeName, ok := aCell.Values[0].Text()
	if !ok {
		return SchemaEntry{}, fmt.Errorf("%w: row %d type column is %s", ErrCorruptSchema, aCell.RowID, aCell.Values[0].Type)
	}
	schemaType, err := parseSchemaType(typeName)
	if err != nil {
		return SchemaEntry{}, err
	}

	name, ok := aCell.Values[1].Text()
	if !ok {
		return SchemaEntry{}, fmt.Errorf("%w: row %d name column is %s", ErrCorruptSchema, aCell.RowID, aCell.Values[1].Type)
	}

	var (
		tableName, _ = aCell.Values[2].Text()
		ddl, _       = aCell.Values[4].Text()
		rootPage     int64
	)
	if rootColumn := aCell.Values[3]; !rootColumn.IsNull() {
		if !rootColumn.Type.Class.IsInteger() {
			return SchemaEntry{}, fmt.Errorf("%w: %s %q root page column is %s", ErrCorruptSchema, schemaType, name, rootColumn.Type)
		}
		rootPage, _ = rootColumn.Int64()
		if rootPage < 0 || rootPage > int64(^uint32(0)) {
			return SchemaEntry{}, fmt.Errorf("%w: %s %q has root page %s", ErrCorruptSchema, schemaType, name, aCell.Values[3])
		}
	}
	if (schemaType == SchemaTable || schemaType == SchemaIndex) && rootPage == 0 {
		return SchemaEntry{}, fmt.Errorf("%w: %s %q has no root page", ErrCorruptSchema, schemaType, name)
	}

	return SchemaEntry{
		Type:      schemaType,
		Name:      name,
		TableName: tableName,
		RootPage:  PageNumber(rootPage),
		SQL:       ddl,
	}, nil
}

// IsReservedName reports names owned by SQLite itself, such as
// sqlite_sequence. They are hidden from table listings only.
func IsReservedName(name string) bool {
	return strings.HasPrefix(name, reservedNamePrefix)
}

// Catalog is the decoded schema table with tables indexed by exact,
// case-sensitive name.
type Catalog struct {
	Entries []SchemaEntry
	tables  map[string]SchemaEntry
}

// NewCatalog builds the catalog from the schema table's leaf pages, the
// first of which is normally page 1 itself.
func NewCatalog(leaves ...*Page) (*Catalog, error) {
	aCatalog := &Catalog{
		tables: make(map[string]SchemaEntry),
	}

	for _, aPage := range leaves {
		if aPage.Header.Type != TableLeaf {
			return nil, fmt.Errorf("%w: page %d is a %s page", ErrCorruptSchema, aPage.Number, aPage.Header.Type)
		}
		for _, aCell := range aPage.Cells {
			anEntry, err := scanSchema(aCell)
			if err != nil {
				return nil, err
			}
			aCatalog.Entries = append(aCatalog.Entries, anEntry)
			if anEntry.Type == SchemaTable {
				aCatalog.tables[anEntry.Name] = anEntry
			}
		}
	}

	return aCatalog, nil
}

// Table looks a table up by name. The schema table itself has no row of
// its own and resolves to page 1 under both of its names.
func (c *Catalog) Table(name string) (SchemaEntry, error) {
	if name == SchemaTableName || name == LegacySchemaTableName {
		return SchemaEntry{
			Type:      SchemaTable,
			Name:      name,
			TableName: name,
			RootPage:  SchemaPageNumber,
		}, nil
	}

	anEntry, ok := c.tables[name]
	if !ok {
		return SchemaEntry{}, fmt.Errorf("%w: %s", ErrNoSuchTable, name)
	}
	return anEntry, nil
}

// TableNames lists user tables in schema order, reserved names excluded.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for _, anEntry := range c.Entries {
		if anEntry.Type == SchemaTable && !IsReservedName(anEntry.Name) {
			names = append(names, anEntry.Name)
		}
	}
	return names
}

func (c *Catalog) count(schemaType SchemaType) int {
	n := 0
	for _, anEntry := range c.Entries {
		if anEntry.Type == schemaType {
			n += 1
		}
	}
	return n
}

func (c *Catalog) NumTables() int   { return c.count(SchemaTable) }
func (c *Catalog) NumIndexes() int  { return c.count(SchemaIndex) }
func (c *Catalog) NumViews() int    { return c.count(SchemaView) }
func (c *Catalog) NumTriggers() int { return c.count(SchemaTrigger) }
