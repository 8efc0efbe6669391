package sqlitefile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RichardKnop/liteinspect/pkg/lrucache"
)

type pagerImpl struct {
	pageSize   int
	totalPages uint32
	dbHeader   DatabaseHeader
	file       DBFile
	fileSize   int64
	cache      *lrucache.Cache[PageNumber, []byte] // nil unless WithPageCache is used
	logger     *zap.Logger
}

type PagerOption func(*pagerImpl)

// WithPageCache keeps up to size raw pages in memory. Without it every
// read goes to the file.
func WithPageCache(size int) PagerOption {
	return func(p *pagerImpl) {
		if size > 0 {
			p.cache = lrucache.New[PageNumber, []byte](size)
		}
	}
}

func WithPagerLogger(logger *zap.Logger) PagerOption {
	return func(p *pagerImpl) {
		p.logger = logger
	}
}

// NewPager reads and validates the database header; the page size and
// the number of pages follow from it and from fileSize.
func NewPager(file DBFile, fileSize int64, opts ...PagerOption) (*pagerImpl, error) {
	aPager := &pagerImpl{
		file:     file,
		fileSize: fileSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(aPager)
	}

	if fileSize < DatabaseHeaderSize {
		return nil, fmt.Errorf("%w: file is %d bytes", ErrCorruptHeader, fileSize)
	}

	buf := make([]byte, DatabaseHeaderSize)
	if _, err := file.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("read database header: %w", err)
	}
	if err := UnmarshalDatabaseHeader(buf, &aPager.dbHeader); err != nil {
		return nil, err
	}

	aPager.pageSize = int(aPager.dbHeader.PageSize)
	if fileSize%int64(aPager.pageSize) != 0 {
		return nil, fmt.Errorf("%w: file size %d is not a multiple of page size %d", ErrCorruptHeader, fileSize, aPager.pageSize)
	}
	aPager.totalPages = uint32(fileSize / int64(aPager.pageSize))

	aPager.logger.Sugar().With(
		"page_size", aPager.pageSize,
		"total_pages", aPager.totalPages,
		"header_page_count", aPager.dbHeader.PageCount,
	).Debug("opened pager")

	return aPager, nil
}

func (p *pagerImpl) Close() error {
	return p.file.Close()
}

func (p *pagerImpl) TotalPages() uint32 {
	return p.totalPages
}

func (p *pagerImpl) PageSize() int {
	return p.pageSize
}

func (p *pagerImpl) GetHeader(ctx context.Context) DatabaseHeader {
	return p.dbHeader
}

// ReadPage returns exactly one page of bytes. Callers must not modify the
// returned slice, it may be shared through the page cache.
func (p *pagerImpl) ReadPage(ctx context.Context, pageNumber PageNumber) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageNumber == 0 || uint32(pageNumber) > p.totalPages {
		return nil, fmt.Errorf("%w: page %d outside file of %d pages", ErrCorruptPage, pageNumber, p.totalPages)
	}

	if p.cache != nil {
		if buf, ok := p.cache.Get(pageNumber); ok {
			return buf, nil
		}
	}

	buf := make([]byte, p.pageSize)
	if _, err := p.file.ReadAt(buf, pageNumber.FileOffset(p.pageSize)); err != nil {
		return nil, fmt.Errorf("read page %d: %w", pageNumber, err)
	}

	p.logger.Debug("read page", zap.Uint32("page", uint32(pageNumber)))

	if p.cache != nil {
		p.cache.Put(pageNumber, buf)
	}

	return buf, nil
}
