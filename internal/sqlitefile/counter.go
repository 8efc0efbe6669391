package sqlitefile

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RowCounter counts the rows of a table. Rowid tables live in a table
// B-tree where only leaf cells are rows. WITHOUT ROWID tables live in an
// index B-tree where every cell, interior ones included, is a row.
type RowCounter struct {
	pager       Pager
	parallelism int
	logger      *zap.Logger
}

func NewRowCounter(logger *zap.Logger, aPager Pager, parallelism int) *RowCounter {
	if parallelism < 1 {
		parallelism = 1
	}
	return &RowCounter{
		pager:       aPager,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Count walks the B-tree rooted at root. The root page decides whether it
// is a table or an index B-tree. Interior children are visited in cell
// order, right-most child last. A page reached twice, a page of the other
// B-tree kind or an unreadable child fails the whole count.
func (c *RowCounter) Count(ctx context.Context, root PageNumber) (int64, error) {
	w := &rowCountWalk{
		RowCounter: c,
		visited:    bitset.New(uint(c.pager.TotalPages()) + 1),
	}

	count, err := w.count(ctx, root, 0)
	if err != nil {
		return 0, err
	}

	c.logger.Sugar().With(
		"root_page", int(root),
		"pages_visited", int(w.visited.Count()),
		"rows", count,
	).Debug("counted rows")

	return count, nil
}

type rowCountWalk struct {
	*RowCounter
	mu      sync.Mutex
	visited *bitset.BitSet
}

func (w *rowCountWalk) markVisited(pageNumber PageNumber) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.visited.Test(uint(pageNumber)) {
		return fmt.Errorf("%w: page %d is referenced twice in the b-tree", ErrCorruptPage, pageNumber)
	}
	w.visited.Set(uint(pageNumber))

	return nil
}

// btreeKind is the leaf page type of the B-tree a page belongs to.
func btreeKind(t PageType) PageType {
	if t.IsTable() {
		return TableLeaf
	}
	return IndexLeaf
}

func btreeName(kind PageType) string {
	if kind == TableLeaf {
		return "a table"
	}
	return "an index"
}

// count returns the rows under pageNumber. kind is the B-tree kind set by
// the root, 0 while visiting the root itself.
func (w *rowCountWalk) count(ctx context.Context, pageNumber PageNumber, kind PageType) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	buf, err := w.pager.ReadPage(ctx, pageNumber)
	if err != nil {
		return 0, err
	}
	if err := w.markVisited(pageNumber); err != nil {
		return 0, err
	}

	aPage, err := DecodePageLayout(buf, pageNumber)
	if err != nil {
		return 0, err
	}

	pageType := aPage.Header.Type
	if kind == 0 {
		kind = btreeKind(pageType)
	} else if btreeKind(pageType) != kind {
		return 0, fmt.Errorf("%w: %s page %d inside %s b-tree", ErrCorruptPage, pageType, pageNumber, btreeName(kind))
	}

	if pageType.IsLeaf() {
		return int64(aPage.Header.CellCount), nil
	}

	var (
		children = aPage.Children()
		counts   = make([]int64, len(children))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for i, child := range children {
		g.Go(func() error {
			n, err := w.count(gctx, child, kind)
			if err != nil {
				return fmt.Errorf("child %d of page %d: %w", child, pageNumber, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	if pageType == IndexInterior {
		total = int64(aPage.Header.CellCount)
	}
	for _, n := range counts {
		total += n
	}
	return total, nil
}
