package sqlitefile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/RichardKnop/liteinspect/internal/pkg/logging"
)

var (
	testLogger *zap.Logger
	gen        = newDataGen(uint64(time.Now().Unix()))
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}

	var err error
	testLogger, err = logging.New(level)
	if err != nil {
		panic(err)
	}
}

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed uint64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

// Person returns values for the name, email, age and score columns of
// peopleTableSQL.
func (g *dataGen) Person() []any {
	return []any{g.Name(), g.Email(), g.IntRange(18, 100), g.Float64Range(0, 1)}
}

// createSQLiteFile builds a database with the real SQLite engine and
// returns its path once the connection is closed and the file is final.
func createSQLiteFile(t *testing.T, pageSize int, statements ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	// page_size only applies to the connection that creates the file
	db.SetMaxOpenConns(1)

	_, err = db.Exec(fmt.Sprintf("PRAGMA page_size = %d", pageSize))
	require.NoError(t, err)
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	require.NoError(t, db.Close())
	return path
}

// insertPeople adds n rows of fake people to a table created with
// peopleTableSQL and returns the row count SQLite itself reports.
func insertPeople(t *testing.T, path, tableName string, n int) int64 {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO "%s" (name, email, age, score) VALUES (?, ?, ?, ?)`, tableName))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := stmt.Exec(gen.Person()...)
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())

	var count int64
	require.NoError(t, db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, tableName)).Scan(&count))
	return count
}

func peopleTableSQL(tableName string) string {
	return fmt.Sprintf(`CREATE TABLE "%s" (
	id integer primary key,
	name text,
	email text,
	age integer,
	score real
)`, tableName)
}

func openTestDatabase(t *testing.T, path string, opts ...DatabaseOption) *Database {
	t.Helper()

	file, size, err := OpenFile(path, false)
	require.NoError(t, err)
	aPager, err := NewPager(file, size, WithPagerLogger(testLogger))
	require.NoError(t, err)

	aDatabase, err := NewDatabase(context.Background(), testLogger, path, aPager, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		aDatabase.Close()
	})

	return aDatabase
}

func mustDecodePage(t *testing.T, buf []byte, number PageNumber) *Page {
	t.Helper()

	aPage, err := DecodePage(buf, number, len(buf))
	require.NoError(t, err)
	return aPage
}
