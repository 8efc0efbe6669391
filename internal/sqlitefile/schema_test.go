package sqlitefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardKnop/liteinspect/internal/sqlitefile/sqlitefiletest"
)

func testSchemaPage(t *testing.T, cells ...[]byte) *Page {
	t.Helper()

	return mustDecodePage(t, sqlitefiletest.Page(4096, 100, sqlitefiletest.TableLeaf, 0, cells...), SchemaPageNumber)
}

func TestNewCatalog(t *testing.T) {
	t.Parallel()

	aPage := testSchemaPage(t,
		sqlitefiletest.SchemaCell(1, "table", "users", "users", 2, "CREATE TABLE users (id integer primary key autoincrement, email text)"),
		sqlitefiletest.SchemaCell(2, "table", "sqlite_sequence", "sqlite_sequence", 3, "CREATE TABLE sqlite_sequence(name,seq)"),
		sqlitefiletest.SchemaCell(3, "index", "sqlite_autoindex_users_1", "users", 4, ""),
		sqlitefiletest.SchemaCell(4, "index", "idx_email", "users", 5, "CREATE INDEX idx_email ON users (email)"),
		sqlitefiletest.SchemaCell(5, "view", "adults", "adults", 0, "CREATE VIEW adults AS SELECT * FROM users"),
		sqlitefiletest.SchemaCell(6, "trigger", "audit", "users", 0, "CREATE TRIGGER audit AFTER INSERT ON users BEGIN SELECT 1; END"),
		sqlitefiletest.SchemaCell(7, "table", "Orders", "Orders", 6, "CREATE TABLE Orders (id)"),
	)

	aCatalog, err := NewCatalog(aPage)
	require.NoError(t, err)

	assert.Len(t, aCatalog.Entries, 7)
	assert.Equal(t, 3, aCatalog.NumTables())
	assert.Equal(t, 2, aCatalog.NumIndexes())
	assert.Equal(t, 1, aCatalog.NumViews())
	assert.Equal(t, 1, aCatalog.NumTriggers())
	assert.Equal(t, []string{"users", "Orders"}, aCatalog.TableNames())

	users, err := aCatalog.Table("users")
	require.NoError(t, err)
	assert.Equal(t, SchemaEntry{
		Type:      SchemaTable,
		Name:      "users",
		TableName: "users",
		RootPage:  2,
		SQL:       "CREATE TABLE users (id integer primary key autoincrement, email text)",
	}, users)

	// Reserved tables are hidden from listings but can still be resolved.
	sequence, err := aCatalog.Table("sqlite_sequence")
	require.NoError(t, err)
	assert.Equal(t, PageNumber(3), sequence.RootPage)

	assert.Equal(t, "", aCatalog.Entries[2].SQL)
	assert.Equal(t, PageNumber(0), aCatalog.Entries[4].RootPage)
}

func TestCatalog_Table(t *testing.T) {
	t.Parallel()

	aCatalog, err := NewCatalog(testSchemaPage(t,
		sqlitefiletest.SchemaCell(1, "table", "Orders", "Orders", 2, "CREATE TABLE Orders (id)"),
		sqlitefiletest.SchemaCell(2, "index", "idx", "Orders", 3, "CREATE INDEX idx ON Orders (id)"),
	))
	require.NoError(t, err)

	testCases := []struct {
		name     string
		rootPage PageNumber
		err      error
	}{
		{"Orders", 2, nil},
		{"sqlite_schema", SchemaPageNumber, nil},
		{"sqlite_master", SchemaPageNumber, nil},
		{"SQLITE_SCHEMA", 0, ErrNoSuchTable},
		{"orders", 0, ErrNoSuchTable},
		{"idx", 0, ErrNoSuchTable},
		{"", 0, ErrNoSuchTable},
	}

	for _, aTestCase := range testCases {
		t.Run(aTestCase.name, func(t *testing.T) {
			anEntry, err := aCatalog.Table(aTestCase.name)
			if aTestCase.err != nil {
				assert.ErrorIs(t, err, aTestCase.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, aTestCase.name, anEntry.Name)
			assert.Equal(t, SchemaTable, anEntry.Type)
			assert.Equal(t, aTestCase.rootPage, anEntry.RootPage)
		})
	}
}

func TestNewCatalog_Empty(t *testing.T) {
	t.Parallel()

	aCatalog, err := NewCatalog(testSchemaPage(t))
	require.NoError(t, err)
	assert.Equal(t, 0, aCatalog.NumTables())
	assert.Empty(t, aCatalog.TableNames())

	// The schema table is not a row of itself.
	_, err = aCatalog.Table(SchemaTableName)
	require.NoError(t, err)
	assert.Equal(t, 0, aCatalog.NumTables())
}

func TestNewCatalog_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		cell []byte
	}{
		{"too few columns", sqlitefiletest.TableLeafCell(1, "table", "t", "t", 2)},
		{"unknown type", sqlitefiletest.SchemaCell(1, "sequence", "t", "t", 2, "")},
		{"type not text", sqlitefiletest.TableLeafCell(1, 1, "t", "t", 2, "CREATE TABLE t (a)")},
		{"name not text", sqlitefiletest.TableLeafCell(1, "table", nil, "t", 2, "CREATE TABLE t (a)")},
		{"root page not integer", sqlitefiletest.TableLeafCell(1, "table", "t", "t", "2", "CREATE TABLE t (a)")},
		{"root page is a float", sqlitefiletest.TableLeafCell(1, "table", "t", "t", 2.0, "CREATE TABLE t (a)")},
		{"negative root page", sqlitefiletest.SchemaCell(1, "table", "t", "t", -2, "CREATE TABLE t (a)")},
		{"table without root page", sqlitefiletest.SchemaCell(1, "table", "t", "t", 0, "CREATE TABLE t (a)")},
		{"index without root page", sqlitefiletest.TableLeafCell(1, "index", "i", "t", nil, "CREATE INDEX i ON t (a)")},
	}

	for _, aTestCase := range testCases {
		t.Run(aTestCase.name, func(t *testing.T) {
			_, err := NewCatalog(testSchemaPage(t, aTestCase.cell))
			assert.ErrorIs(t, err, ErrCorruptSchema)
		})
	}
}

func TestNewCatalog_NotLeaf(t *testing.T) {
	t.Parallel()

	aPage := mustDecodePage(t, sqlitefiletest.Page(4096, 100, sqlitefiletest.TableInterior, 3,
		sqlitefiletest.TableInteriorCell(2, 10),
	), SchemaPageNumber)

	_, err := NewCatalog(aPage)
	assert.ErrorIs(t, err, ErrCorruptSchema)
}

func TestIsReservedName(t *testing.T) {
	t.Parallel()

	assert.True(t, IsReservedName("sqlite_sequence"))
	assert.True(t, IsReservedName("sqlite_stat1"))
	assert.False(t, IsReservedName("users"))
	assert.False(t, IsReservedName("SQLITE_x"))
	assert.False(t, IsReservedName("my_sqlite_table"))
}
