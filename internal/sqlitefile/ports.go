package sqlitefile

import (
	"context"
	"io"
)

// DBFile is the read-only view of a database file the pager needs.
type DBFile interface {
	io.ReaderAt
	io.Closer
}

type Pager interface {
	ReadPage(context.Context, PageNumber) ([]byte, error)
	GetHeader(context.Context) DatabaseHeader
	TotalPages() uint32
	Close() error
}

type Parser interface {
	Parse(context.Context, string) (Command, error)
}
