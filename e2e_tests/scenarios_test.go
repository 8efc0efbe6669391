package e2etests

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RichardKnop/liteinspect"
	"github.com/RichardKnop/liteinspect/internal/sqlitefile/sqlitefiletest"
)

func (s *TestSuite) TestSingleLeafTable() {
	path := s.createDatabase("single.db", 512, `CREATE TABLE t (name text, email text)`)
	sqlDB := s.openSQLite(path)
	for range 3 {
		_, err := sqlDB.Exec(`INSERT INTO t VALUES (?, ?)`, s.gen.Name(), s.gen.Email())
		s.Require().NoError(err)
	}
	s.Require().NoError(sqlDB.Close())

	db := s.open(path)

	s.Run("dbinfo", func() {
		out := s.exec(db, ".dbinfo")
		s.Contains(out, "page size: 512")
		s.Contains(out, "number of tables: 1")
	})

	s.Run("tables", func() {
		s.Equal("t\n", s.exec(db, ".tables"))
	})

	s.Run("count", func() {
		s.Equal("3\n", s.exec(db, "SELECT COUNT(*) FROM t"))
		s.Equal("3\n", s.exec(db, `select count(*) from "t";`))
	})

	info := db.Info()
	s.Equal(uint32(512), info.PageSize)
	s.Equal(uint32(2), info.PageCount)
}

func (s *TestSuite) TestTableUnderInteriorRoot() {
	builder := sqlitefiletest.New(4096)

	leafA := make([][]byte, 0, 50)
	for i := range 50 {
		leafA = append(leafA, sqlitefiletest.TableLeafCell(int64(i+1), s.gen.Name(), s.gen.Email()))
	}
	leafB := make([][]byte, 0, 25)
	for i := range 25 {
		leafB = append(leafB, sqlitefiletest.TableLeafCell(int64(i+51), s.gen.Name(), s.gen.Email()))
	}

	pageA := builder.AddPage(sqlitefiletest.TableLeaf, 0, leafA...)
	pageB := builder.AddPage(sqlitefiletest.TableLeaf, 0, leafB...)
	root := builder.AddPage(sqlitefiletest.TableInterior, pageB, sqlitefiletest.TableInteriorCell(pageA, 50))
	builder.AddSchemaEntry("table", "people", "people", root, "CREATE TABLE people (name text, email text)")
	path := builder.WriteFile(s.T())

	for _, connStr := range []string{
		path,
		path + "?mmap=true",
		path + "?parallelism=2&max_cached_pages=2",
	} {
		db := s.open(connStr)
		s.Equal("75\n", s.exec(db, "SELECT COUNT(*) FROM people"), connStr)
	}
}

func (s *TestSuite) TestMissingTable() {
	path := s.createDatabase("missing.db", 1024, `CREATE TABLE t (a)`)
	db := s.open(path)

	var out bytes.Buffer
	err := db.Exec(s.ctx, &out, "SELECT COUNT(*) FROM nope")
	s.ErrorIs(err, liteinspect.ErrNoSuchTable)
	s.Empty(out.String())

	_, err = db.Count(s.ctx, "nope")
	s.ErrorIs(err, liteinspect.ErrNoSuchTable)
}

func (s *TestSuite) TestUnsupportedCommands() {
	path := s.createDatabase("unsupported.db", 4096, `CREATE TABLE t (a)`)
	db := s.open(path)

	for _, command := range []string{
		"",
		".schema",
		"SELECT * FROM t",
		"SELECT COUNT(a) FROM t",
		"SELECT COUNT(*) FROM t WHERE a = 1",
		"DELETE FROM t",
	} {
		var out bytes.Buffer
		err := db.Exec(s.ctx, &out, command)
		s.ErrorIs(err, liteinspect.ErrUnsupportedCommand, command)
		s.Empty(out.String())
	}
}

func (s *TestSuite) TestLargeDatabase() {
	path := s.createDatabase("large.db", 1024,
		`CREATE TABLE users (id integer primary key autoincrement, name text, email text unique)`,
		`CREATE TABLE orders (id integer primary key, user_id integer, total real)`,
		`CREATE INDEX idx_orders_user ON orders (user_id)`,
		`CREATE VIEW big_orders AS SELECT * FROM orders WHERE total > 100`,
	)

	sqlDB := s.openSQLite(path)
	tx, err := sqlDB.Begin()
	s.Require().NoError(err)
	for i := range 5000 {
		_, err := tx.Exec(`INSERT INTO users (name, email) VALUES (?, ?)`, s.gen.Name(), fmt.Sprintf("%d-%s", i, s.gen.Email()))
		s.Require().NoError(err)
		_, err = tx.Exec(`INSERT INTO orders (user_id, total) VALUES (?, ?)`, i+1, s.gen.Price(1, 500))
		s.Require().NoError(err)
	}
	s.Require().NoError(tx.Commit())
	s.Require().NoError(sqlDB.Close())

	db := s.open(path + "?parallelism=4&max_cached_pages=128")

	s.Equal([]string{"users", "orders"}, db.Tables())
	s.Equal(
		"database page size: 1024\nnumber of tables: 3\nnumber of indexes: 2\n",
		s.exec(db, ".dbinfo"),
	)
	s.Equal("users orders\n", s.exec(db, ".tables"))

	for _, tableName := range []string{"users", "orders", "sqlite_sequence"} {
		expected := s.sqliteCount(path, tableName)
		s.Equal(fmt.Sprintf("%d\n", expected), s.exec(db, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, tableName)))
	}
}

func (s *TestSuite) TestCorruptFiles() {
	s.Run("not a database", func() {
		path := filepath.Join(s.dir, "text.db")
		s.Require().NoError(os.WriteFile(path, []byte(s.gen.Sentence(50)), 0600))

		_, err := liteinspect.Open(s.ctx, path)
		s.ErrorIs(err, liteinspect.ErrCorruptHeader)
	})

	s.Run("truncated file", func() {
		source := s.createDatabase("source.db", 512, `CREATE TABLE t (a)`, `INSERT INTO t VALUES (1)`)
		data, err := os.ReadFile(source)
		s.Require().NoError(err)

		path := filepath.Join(s.dir, "truncated.db")
		s.Require().NoError(os.WriteFile(path, data[:len(data)-100], 0600))

		_, err = liteinspect.Open(s.ctx, path)
		s.ErrorIs(err, liteinspect.ErrCorruptHeader)
	})

	s.Run("root page past end of file", func() {
		builder := sqlitefiletest.New(512)
		builder.AddSchemaEntry("table", "t", "t", 40, "CREATE TABLE t (a)")
		db := s.open(builder.WriteFile(s.T()))

		_, err := db.Count(s.ctx, "t")
		s.ErrorIs(err, liteinspect.ErrCorruptPage)
	})

	s.Run("missing file", func() {
		_, err := liteinspect.Open(s.ctx, filepath.Join(s.dir, "nothing-here.db"))
		s.ErrorIs(err, os.ErrNotExist)
	})
}

func (s *TestSuite) TestTableNamesNeedingQuotes() {
	path := s.createDatabase("names.db", 1024,
		`CREATE TABLE café (a)`,
		`CREATE TABLE "order items" (a)`,
		`CREATE TABLE plain (k TEXT PRIMARY KEY, v) WITHOUT ROWID`,
		`INSERT INTO café VALUES (1), (2)`,
		`INSERT INTO "order items" VALUES (1), (2), (3)`,
		`INSERT INTO plain VALUES ('a', 1), ('b', 2), ('c', 3), ('d', 4)`,
	)
	db := s.open(path)

	s.Equal("café order items plain\n", s.exec(db, ".tables"))
	s.Equal("2\n", s.exec(db, "SELECT COUNT(*) FROM café"))
	s.Equal("3\n", s.exec(db, "SELECT COUNT(*) FROM [order items]"))
	s.Equal("3\n", s.exec(db, "SELECT COUNT(*) FROM `order items`"))
	s.Equal("3\n", s.exec(db, `SELECT COUNT(*) FROM "order items"`))
	s.Equal(fmt.Sprintf("%d\n", s.sqliteCount(path, "plain")), s.exec(db, "SELECT COUNT(*) FROM plain"))
}
