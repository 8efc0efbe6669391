package sqlitefile

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
)

// Database is a read-only session over one database file. The header and
// the schema catalog are read once when it is created.
type Database struct {
	Name        string
	pager       Pager
	header      DatabaseHeader
	catalog     *Catalog
	parallelism int
	logger      *zap.Logger
}

type DatabaseOption func(*Database)

// WithParallelism bounds how many sibling subtrees a row count visits
// at once. The default of 1 walks the tree sequentially.
func WithParallelism(n int) DatabaseOption {
	return func(d *Database) {
		d.parallelism = n
	}
}

type DatabaseInfo struct {
	PageSize    uint32
	PageCount   uint32
	NumTables   int
	NumIndexes  int
	NumViews    int
	NumTriggers int
}

func NewDatabase(ctx context.Context, logger *zap.Logger, name string, aPager Pager, opts ...DatabaseOption) (*Database, error) {
	d := &Database{
		Name:        name,
		pager:       aPager,
		header:      aPager.GetHeader(ctx),
		parallelism: 1,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.init(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Database) init(ctx context.Context) error {
	d.logger.Sugar().With(
		"file_name", d.Name,
		"page_size", d.header.PageSize,
		"total_pages", d.pager.TotalPages(),
	).Debug("initializing database")

	leaves, err := d.tableLeaves(ctx, SchemaPageNumber)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	aCatalog, err := NewCatalog(leaves...)
	if err != nil {
		return err
	}
	d.catalog = aCatalog

	d.logger.Sugar().With(
		"schema_pages", len(leaves),
		"tables", aCatalog.NumTables(),
		"indexes", aCatalog.NumIndexes(),
	).Debug("loaded schema")

	return nil
}

// tableLeaves decodes every leaf of the table B-tree rooted at root, in
// key order.
func (d *Database) tableLeaves(ctx context.Context, root PageNumber) ([]*Page, error) {
	var (
		visited = bitset.New(uint(d.pager.TotalPages()) + 1)
		leaves  []*Page
		visit   func(PageNumber) error
	)
	visit = func(pageNumber PageNumber) error {
		aPage, err := d.ReadPage(ctx, pageNumber)
		if err != nil {
			return err
		}
		if visited.Test(uint(pageNumber)) {
			return fmt.Errorf("%w: page %d is referenced twice in the b-tree", ErrCorruptPage, pageNumber)
		}
		visited.Set(uint(pageNumber))

		switch aPage.Header.Type {
		case TableLeaf:
			leaves = append(leaves, aPage)
		case TableInterior:
			for _, child := range aPage.Children() {
				if err := visit(child); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: %s page %d inside a table b-tree", ErrCorruptPage, aPage.Header.Type, pageNumber)
		}
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (d *Database) Close() error {
	return d.pager.Close()
}

func (d *Database) Header() DatabaseHeader {
	return d.header
}

func (d *Database) Catalog() *Catalog {
	return d.catalog
}

func (d *Database) Info() DatabaseInfo {
	return DatabaseInfo{
		PageSize:    d.header.PageSize,
		PageCount:   d.pager.TotalPages(),
		NumTables:   d.catalog.NumTables(),
		NumIndexes:  d.catalog.NumIndexes(),
		NumViews:    d.catalog.NumViews(),
		NumTriggers: d.catalog.NumTriggers(),
	}
}

// ListTableNames lists user tables, hiding reserved sqlite_ names.
func (d *Database) ListTableNames() []string {
	return d.catalog.TableNames()
}

// ReadPage reads and fully decodes one page.
func (d *Database) ReadPage(ctx context.Context, pageNumber PageNumber) (*Page, error) {
	buf, err := d.pager.ReadPage(ctx, pageNumber)
	if err != nil {
		return nil, err
	}
	return DecodePage(buf, pageNumber, d.header.UsableSize())
}

// CountRows returns the number of rows in the named table.
func (d *Database) CountRows(ctx context.Context, tableName string) (int64, error) {
	aTable, err := d.catalog.Table(tableName)
	if err != nil {
		return 0, err
	}

	return NewRowCounter(d.logger, d.pager, d.parallelism).Count(ctx, aTable.RootPage)
}

// Execute runs a resolved command and writes its output to w. Nothing is
// written when the command fails.
func (d *Database) Execute(ctx context.Context, w io.Writer, aCommand Command) error {
	d.logger.Debug("executing command",
		zap.Stringer("kind", aCommand.Kind),
		zap.String("table", aCommand.TableName),
	)

	switch aCommand.Kind {
	case DBInfo:
		info := d.Info()
		_, err := fmt.Fprintf(w, "database page size: %d\nnumber of tables: %d\nnumber of indexes: %d\n",
			info.PageSize, info.NumTables, info.NumIndexes)
		return err
	case ListTables:
		_, err := fmt.Fprintln(w, strings.Join(d.ListTableNames(), " "))
		return err
	case CountTableRows:
		count, err := d.CountRows(ctx, aCommand.TableName)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, count)
		return err
	default:
		return fmt.Errorf("%w: command kind %d", ErrUnsupportedCommand, aCommand.Kind)
	}
}
