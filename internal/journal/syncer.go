package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Syncer periodically refreshes a set of wallets and imports their trades into the store.
type Syncer struct {
	logger   *zap.Logger
	loader   *Loader
	store    TradeStore
	wallets  []string
	interval time.Duration
	now      func() time.Time

	StartTime time.Time

	mu       sync.Mutex
	statuses map[string]*WalletSyncStatus
}

// WalletSyncStatus is the outcome of the most recent sync of one wallet.
type WalletSyncStatus struct {
	Wallet        string     `json:"wallet"`
	LastAttemptAt time.Time  `json:"last_attempt_at"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	Fetched       int        `json:"fetched"`
	Inserted      int        `json:"inserted"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// NewSyncer creates a Syncer for the given wallets.
func NewSyncer(logger *zap.Logger, loader *Loader, store TradeStore, wallets []string, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = DefaultCacheTTL
	}
	return &Syncer{
		logger:    logger.Named("syncer"),
		loader:    loader,
		store:     store,
		wallets:   wallets,
		interval:  interval,
		now:       time.Now,
		StartTime: time.Now(),
		statuses:  make(map[string]*WalletSyncStatus),
	}
}

// Wallets returns the wallets the syncer is responsible for.
func (s *Syncer) Wallets() []string { return s.wallets }

// Statuses returns the last sync outcome of every wallet synced so far, ordered by wallet.
func (s *Syncer) Statuses() []WalletSyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WalletSyncStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wallet < out[j].Wallet })
	return out
}

func (s *Syncer) record(wallet string, fetched, inserted int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[wallet]
	if !ok {
		st = &WalletSyncStatus{Wallet: wallet}
		s.statuses[wallet] = st
	}
	now := s.now()
	st.LastAttemptAt = now
	if err != nil {
		st.ErrorKind = KindOf(err).String()
		st.Error = err.Error()
		return
	}
	st.LastSuccessAt = &now
	st.Fetched = fetched
	st.Inserted = inserted
	st.ErrorKind = ""
	st.Error = ""
}

// Run syncs all wallets immediately and then on every tick until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	if len(s.wallets) == 0 {
		s.logger.Warn("No wallets configured, nothing to sync")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting sync loop",
		zap.Duration("interval", s.interval),
		zap.Int("wallets", len(s.wallets)),
	)
	s.SyncAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping sync loop...")
			return
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

// SyncAll syncs every configured wallet; a failing wallet does not stop the others.
func (s *Syncer) SyncAll(ctx context.Context) {
	for _, wallet := range s.wallets {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.SyncWallet(ctx, wallet); err != nil {
			s.logger.Error("Wallet sync failed",
				zap.String("wallet", wallet),
				zap.Stringer("kind", KindOf(err)),
				zap.Bool("retriable", KindOf(err).Retriable()),
				zap.Error(err),
			)
		}
	}
}

// SyncWallet refreshes one wallet and stores trades not yet imported. It returns the number
// of newly stored trades.
func (s *Syncer) SyncWallet(ctx context.Context, wallet string) (int, error) {
	res, err := s.loader.Refresh(ctx, wallet)
	if err != nil {
		s.record(wallet, 0, 0, err)
		return 0, err
	}

	inserted, err := s.store.SaveTrades(ctx, res.Trades)
	if err != nil {
		err = fmt.Errorf("could not store trades for wallet %s: %w", wallet, err)
		s.record(wallet, len(res.Trades), 0, err)
		return 0, err
	}
	s.record(wallet, len(res.Trades), inserted, nil)
	s.logger.Info("Wallet synced",
		zap.String("wallet", wallet),
		zap.Int("fetched", len(res.Trades)),
		zap.Int("new", inserted),
	)
	return inserted, nil
}
