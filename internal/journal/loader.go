package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"trade-journal-go/internal/models"
)

const (
	// DefaultPageSize is used when a caller passes a non-positive page size.
	DefaultPageSize = 50
	// DefaultMaxPages bounds a full history re-fetch.
	DefaultMaxPages = 200
)

// LoadResult is the outcome of one Load, LoadMore or Refresh call.
type LoadResult struct {
	// Trades holds the trades of the requested page (all trades for Refresh).
	Trades []models.Trade `json:"trades"`
	// All holds every trade loaded for the wallet so far, deduplicated.
	All        []models.Trade `json:"all"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalCount int            `json:"total_count"`
	HasMore    bool           `json:"has_more"`
	FromCache  bool           `json:"from_cache"`
}

// walletSession is the accumulated paging state of one wallet.
type walletSession struct {
	mu           sync.Mutex // serializes all loads of the wallet
	page         int
	pageSize     int
	totalCount   int
	minTimestamp *int64
	trades       []models.Trade
	complete     bool // trades hold the wallet's full history
	cacheFull    bool // the cache entry holds the wallet's full history
}

// Loader pulls trade history pages from the upstream source, cleans them and keeps the
// wallet cache up to date. Only page 1 and Refresh write the cache; later pages are
// appended to the in-memory session so abandoning a LoadMore sequence leaves the cache intact.
type Loader struct {
	source   TradeSource
	cache    *WalletTradeCache
	logger   *zap.Logger
	pageSize int
	maxPages int

	mu       sync.Mutex
	sessions map[string]*walletSession
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPageSize sets the page size used by LoadMore and Refresh when none is known yet.
func WithPageSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithMaxPages bounds the number of pages fetched by Refresh.
func WithMaxPages(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxPages = n
		}
	}
}

// NewLoader creates a Loader reading from source and caching into cache.
func NewLoader(source TradeSource, cache *WalletTradeCache, logger *zap.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		source:   source,
		cache:    cache,
		logger:   logger.Named("loader"),
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		sessions: make(map[string]*walletSession),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the cache the loader writes to.
func (l *Loader) Cache() *WalletTradeCache { return l.cache }

func (l *Loader) session(walletID string) *walletSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[walletID]
	if !ok {
		s = &walletSession{}
		l.sessions[walletID] = s
	}
	return s
}

// Load returns one page of the wallet's trades. Page 1 is served from the cache when the
// entry is valid and no minTimestamp filter is given; otherwise it is fetched and written
// to the cache. Pages after the first are appended to the session without touching the cache.
func (l *Loader) Load(ctx context.Context, walletID string, page, pageSize int, minTimestamp *int64) (*LoadResult, error) {
	if walletID == "" {
		return &LoadResult{Page: page}, NewError(KindValidation, "load", errors.New("empty wallet id"))
	}
	if page < 1 {
		return &LoadResult{Page: page}, NewError(KindValidation, "load", fmt.Errorf("invalid page %d", page))
	}
	if pageSize <= 0 {
		pageSize = l.pageSize
	}

	s := l.session(walletID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if page == 1 && minTimestamp == nil {
		if cached, ok := l.cache.Get(walletID); ok {
			return l.fromCache(s, cached, pageSize), nil
		}
	}
	return l.fetchPage(ctx, s, walletID, page, pageSize, minTimestamp)
}

// LoadMore fetches the page after the last one loaded for the wallet and appends it.
// It starts at page 1 when nothing was loaded yet.
func (l *Loader) LoadMore(ctx context.Context, walletID string) (*LoadResult, error) {
	if walletID == "" {
		return &LoadResult{}, NewError(KindValidation, "load more", errors.New("empty wallet id"))
	}

	s := l.session(walletID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == 0 {
		if cached, ok := l.cache.Get(walletID); ok {
			return l.fromCache(s, cached, l.pageSize), nil
		}
		return l.fetchPage(ctx, s, walletID, 1, l.pageSize, nil)
	}

	if s.complete || s.page*s.pageSize >= s.totalCount {
		return &LoadResult{
			All:        copyTrades(s.trades),
			Page:       s.page,
			PageSize:   s.pageSize,
			TotalCount: s.totalCount,
		}, nil
	}
	return l.fetchPage(ctx, s, walletID, s.page+1, s.pageSize, s.minTimestamp)
}

// Refresh re-fetches the wallet's full history from page 1 and replaces the cache entry.
// On failure the existing entry is left as it was.
func (l *Loader) Refresh(ctx context.Context, walletID string) (*LoadResult, error) {
	if walletID == "" {
		return &LoadResult{}, NewError(KindValidation, "refresh", errors.New("empty wallet id"))
	}

	s := l.session(walletID)
	s.mu.Lock()
	defer s.mu.Unlock()

	return l.refresh(ctx, s, walletID)
}

// All returns the wallet's full trade history: from the cache when it is valid and known
// to be complete, otherwise through a Refresh.
func (l *Loader) All(ctx context.Context, walletID string) ([]models.Trade, error) {
	if walletID == "" {
		return nil, NewError(KindValidation, "load all", errors.New("empty wallet id"))
	}

	s := l.session(walletID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cacheFull {
		if cached, ok := l.cache.Get(walletID); ok {
			return cached, nil
		}
	}
	res, err := l.refresh(ctx, s, walletID)
	if err != nil {
		return nil, err
	}
	return res.Trades, nil
}

func (l *Loader) refresh(ctx context.Context, s *walletSession, walletID string) (*LoadResult, error) {
	pageSize := s.pageSize
	if pageSize <= 0 {
		pageSize = l.pageSize
	}

	var all []models.Trade
	total, page := 0, 0
	for page < l.maxPages {
		page++
		res, err := l.fetch(ctx, walletID, page, pageSize, nil)
		if err != nil {
			return &LoadResult{Page: page, PageSize: pageSize}, err
		}
		all = Dedupe(append(all, res.trades...))
		total = res.totalCount
		// A page whose records were all malformed still counts; only an empty upstream page ends early.
		if res.received == 0 || page*pageSize >= total {
			break
		}
	}
	if page >= l.maxPages && page*pageSize < total {
		l.logger.Warn("History truncated at page limit",
			zap.String("wallet", walletID),
			zap.Int("max_pages", l.maxPages),
			zap.Int("total_count", total),
		)
	}

	l.cache.Set(walletID, all)
	s.page = page
	s.pageSize = pageSize
	s.totalCount = total
	s.minTimestamp = nil
	s.trades = all
	s.complete = true
	s.cacheFull = true

	l.logger.Info("Refreshed wallet history",
		zap.String("wallet", walletID),
		zap.Int("trades", len(all)),
		zap.Int("pages", page),
	)
	return &LoadResult{
		Trades:     copyTrades(all),
		All:        copyTrades(all),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

func (l *Loader) fromCache(s *walletSession, cached []models.Trade, pageSize int) *LoadResult {
	total := len(cached)
	if s.totalCount > total {
		total = s.totalCount
	}
	first := cached
	if len(first) > pageSize {
		first = first[:pageSize]
	}

	hasMore := pageSize < total
	s.page = 1
	s.pageSize = pageSize
	s.totalCount = total
	s.minTimestamp = nil
	s.trades = copyTrades(first)
	// The session restarts at page 1; LoadMore continues from there.
	s.complete = !hasMore && s.cacheFull

	return &LoadResult{
		Trades:     copyTrades(first),
		All:        copyTrades(first),
		Page:       1,
		PageSize:   pageSize,
		TotalCount: total,
		HasMore:    hasMore,
		FromCache:  true,
	}
}

func (l *Loader) fetchPage(ctx context.Context, s *walletSession, walletID string, page, pageSize int, minTimestamp *int64) (*LoadResult, error) {
	res, err := l.fetch(ctx, walletID, page, pageSize, minTimestamp)
	if err != nil {
		// Stale-but-present data beats data loss: neither cache nor session change.
		return &LoadResult{Page: page, PageSize: pageSize, TotalCount: s.totalCount, HasMore: false}, err
	}

	hasMore := page*pageSize < res.totalCount
	if page == 1 {
		s.trades = res.trades
		if minTimestamp == nil {
			l.cache.Set(walletID, res.trades)
			s.cacheFull = !hasMore
		}
	} else {
		s.trades = Dedupe(append(s.trades, res.trades...))
	}
	s.page = page
	s.pageSize = pageSize
	s.totalCount = res.totalCount
	s.minTimestamp = minTimestamp
	s.complete = minTimestamp == nil && !hasMore

	return &LoadResult{
		Trades:     copyTrades(res.trades),
		All:        copyTrades(s.trades),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: res.totalCount,
		HasMore:    hasMore,
	}, nil
}

type fetchedPage struct {
	trades     []models.Trade
	received   int // raw records on the page, before validation
	totalCount int
}

func (l *Loader) fetch(ctx context.Context, walletID string, page, pageSize int, minTimestamp *int64) (*fetchedPage, error) {
	log := l.logger.With(
		zap.String("wallet", walletID),
		zap.Int("page", page),
		zap.Int("page_size", pageSize),
	)

	res, err := l.source.FetchTrades(ctx, FetchRequest{
		WalletAddress: walletID,
		Page:          page,
		PageSize:      pageSize,
		MinTimestamp:  minTimestamp,
	})
	if err != nil {
		err = classify("fetch trades", err)
		log.Warn("Failed to fetch trades", zap.Stringer("kind", KindOf(err)), zap.Error(err))
		return nil, err
	}
	if res == nil {
		res = &FetchResult{}
	}

	trades, verr := NormalizeAndDedupe(res.Trades)
	if verr != nil {
		log.Warn("Skipped malformed trades",
			zap.Int("received", len(res.Trades)),
			zap.Int("kept", len(trades)),
			zap.Error(verr),
		)
	}
	log.Debug("Fetched trades", zap.Int("count", len(trades)), zap.Int("total_count", res.TotalCount))
	return &fetchedPage{trades: trades, received: len(res.Trades), totalCount: res.TotalCount}, nil
}

// classify makes sure err carries an ErrorKind.
func classify(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewError(KindOf(err), op, err)
}
