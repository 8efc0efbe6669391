// Package liteinspect answers introspection queries against SQLite
// database files without an SQL engine: database info, table listing and
// row counts.
package liteinspect

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/RichardKnop/liteinspect/internal/parser"
	"github.com/RichardKnop/liteinspect/internal/pkg/logging"
	"github.com/RichardKnop/liteinspect/internal/sqlitefile"
)

type (
	Info  = sqlitefile.DatabaseInfo
	Entry = sqlitefile.SchemaEntry
)

// Error sentinels callers can match with errors.Is.
var (
	ErrNoSuchTable        = sqlitefile.ErrNoSuchTable
	ErrUnsupportedCommand = sqlitefile.ErrUnsupportedCommand
	ErrCorruptPage        = sqlitefile.ErrCorruptPage
	ErrCorruptHeader      = sqlitefile.ErrCorruptHeader
)

// DB is an open, read-only database file.
type DB struct {
	database *sqlitefile.Database
	parser   sqlitefile.Parser
	logger   *zap.Logger
}

// Open parses the connection string and opens the database it names.
func Open(ctx context.Context, connStr string) (*DB, error) {
	config, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, err
	}
	return OpenConfig(ctx, config)
}

func OpenConfig(ctx context.Context, config *ConnectionConfig) (*DB, error) {
	logConf := logging.DefaultConfig()
	logConf.Level = config.GetZapLevel()
	logger, err := logConf.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return OpenWithLogger(ctx, logger, config)
}

// OpenWithLogger opens the database using the caller's logger instead of
// building one from the configured level.
func OpenWithLogger(ctx context.Context, logger *zap.Logger, config *ConnectionConfig) (*DB, error) {
	file, size, err := sqlitefile.OpenFile(config.FilePath, config.Mmap)
	if err != nil {
		return nil, fmt.Errorf("failed to open database file: %w", err)
	}

	pager, err := sqlitefile.NewPager(
		file,
		size,
		sqlitefile.WithPageCache(config.MaxCachedPages),
		sqlitefile.WithPagerLogger(logger),
	)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create pager: %w", err)
	}

	database, err := sqlitefile.NewDatabase(
		ctx,
		logger,
		config.FilePath,
		pager,
		sqlitefile.WithParallelism(config.Parallelism),
	)
	if err != nil {
		_ = pager.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{
		database: database,
		parser:   parser.New(),
		logger:   logger,
	}, nil
}

// Exec parses one command, runs it and writes its output to w.
func (db *DB) Exec(ctx context.Context, w io.Writer, text string) error {
	aCommand, err := db.parser.Parse(ctx, text)
	if err != nil {
		return err
	}
	return db.database.Execute(ctx, w, aCommand)
}

func (db *DB) Info() Info {
	return db.database.Info()
}

// Tables lists user table names in schema order.
func (db *DB) Tables() []string {
	return db.database.ListTableNames()
}

// Schema returns every row of the schema table.
func (db *DB) Schema() []Entry {
	return db.database.Catalog().Entries
}

func (db *DB) Count(ctx context.Context, tableName string) (int64, error) {
	return db.database.CountRows(ctx, tableName)
}

func (db *DB) Close() error {
	_ = db.logger.Sync()
	return db.database.Close()
}
