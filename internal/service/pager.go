package service

import (
	"context"
	"sync"

	"leaderboard_miniapp/pkg/logger"

	"go.uber.org/zap"
)

// FetchFunc loads one page of items. Pages are 1-indexed.
type FetchFunc[T any] func(ctx context.Context, page, limit int) ([]T, error)

// PageState is a copy of a Pager's state at one instant.
type PageState[T any] struct {
	Page    int
	Items   []T
	HasMore bool
	Loading bool
	Error   string
}

// Pager owns the page cursor and the currently displayed slice of a list.
//
// Each load takes a new generation; a response is applied only if its
// generation is still the latest one, so a slow answer for a page the viewer
// already left never overwrites the newer page. hasMore is inferred as
// len(items) == pageSize, which reports a phantom next page when the last
// page is exactly full; the backend gives no total to do better.
type Pager[T any] struct {
	name       string
	fetch      FetchFunc[T]
	pageSize   int
	errMessage string
	onChange   func()

	mu      sync.Mutex
	page    int
	items   []T
	hasMore bool
	loading bool
	err     string
	gen     uint64
	cancel  context.CancelFunc
	closed  bool
}

type PagerOption func(*pagerOptions)

type pagerOptions struct {
	pageSize   int
	errMessage string
	onChange   func()
}

func WithPageSize(n int) PagerOption {
	return func(o *pagerOptions) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

func WithErrorMessage(msg string) PagerOption {
	return func(o *pagerOptions) {
		o.errMessage = msg
	}
}

// WithOnChange registers a callback fired after every state transition.
// It runs without the pager lock held.
func WithOnChange(fn func()) PagerOption {
	return func(o *pagerOptions) {
		o.onChange = fn
	}
}

func NewPager[T any](name string, fetch FetchFunc[T], opts ...PagerOption) *Pager[T] {
	o := pagerOptions{
		pageSize:   PageSize,
		errMessage: "Failed to load " + name + ".",
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Pager[T]{
		name:       name,
		fetch:      fetch,
		pageSize:   o.pageSize,
		errMessage: o.errMessage,
		onChange:   o.onChange,
		page:       1,
		hasMore:    true,
	}
}

// Mount loads the first page.
func (p *Pager[T]) Mount(ctx context.Context) {
	p.mu.Lock()
	p.page = 1
	p.mu.Unlock()

	p.load(ctx, 1)
}

// Reload fetches the current page again.
func (p *Pager[T]) Reload(ctx context.Context) {
	p.mu.Lock()
	page := p.page
	p.mu.Unlock()

	p.load(ctx, page)
}

// Next moves one page forward and loads it. It reports false, without any
// request, when the current page was not full.
func (p *Pager[T]) Next(ctx context.Context) bool {
	p.mu.Lock()
	if p.closed || !p.hasMore {
		p.mu.Unlock()
		return false
	}
	p.page++
	page := p.page
	p.mu.Unlock()

	p.load(ctx, page)
	return true
}

// Prev moves one page back and loads it. It is a no-op on page 1.
func (p *Pager[T]) Prev(ctx context.Context) bool {
	p.mu.Lock()
	if p.closed || p.page <= 1 {
		p.mu.Unlock()
		return false
	}
	p.page--
	page := p.page
	p.mu.Unlock()

	p.load(ctx, page)
	return true
}

func (p *Pager[T]) PageSize() int {
	return p.pageSize
}

func (p *Pager[T]) State() PageState[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := make([]T, len(p.items))
	copy(items, p.items)

	return PageState[T]{
		Page:    p.page,
		Items:   items,
		HasMore: p.hasMore,
		Loading: p.loading,
		Error:   p.err,
	}
}

// Close unmounts the pager. The in-flight load is cancelled and its answer dropped.
func (p *Pager[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Pager[T]) load(ctx context.Context, page int) {
	log := logger.Named("pager").With(zap.String("list", p.name), zap.Int("page", page))

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	// Only a newer load or Close may cancel this one, not the caller.
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.loading = true
	p.err = ""
	p.mu.Unlock()
	p.notify()

	items, err := p.fetch(loadCtx, page, p.pageSize)

	p.mu.Lock()
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		cancel()
		log.Debug("discarding superseded page response")
		return
	}
	cancel()
	p.cancel = nil
	p.loading = false
	if err != nil {
		log.Error("failed to load page", zap.Error(err))
		p.items = nil
		p.err = p.errMessage
	} else {
		p.items = items
		p.hasMore = len(items) == p.pageSize
	}
	p.mu.Unlock()
	p.notify()
}

func (p *Pager[T]) notify() {
	if p.onChange != nil {
		p.onChange()
	}
}
