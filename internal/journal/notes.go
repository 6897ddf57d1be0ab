package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trade-journal-go/internal/models"
)

// Resolver is one tier of the note fallback chain.
// It returns ok=false when the tier has no non-empty note for the pair.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, walletAddress, tokenAddress string) (text string, ok bool, err error)
}

// StoreResolver reads the note from the trades of the authoritative store, taking the most
// recently written non-empty note among all trades of the token.
type StoreResolver struct {
	Store TradeStore
}

func (r StoreResolver) Name() string { return "trade-store" }

func (r StoreResolver) Resolve(ctx context.Context, walletAddress, tokenAddress string) (string, bool, error) {
	trades, err := r.Store.ListTrades(ctx, walletAddress, tokenAddress)
	if err != nil {
		return "", false, fmt.Errorf("list trades: %w", err)
	}
	note, ok := latestNote(trades)
	return note, ok, nil
}

func latestNote(trades []models.RawTrade) (string, bool) {
	var best *models.RawTrade
	for i := range trades {
		t := &trades[i]
		if strings.TrimSpace(t.Note) == "" {
			continue
		}
		if best == nil ||
			t.NoteUpdatedAt > best.NoteUpdatedAt ||
			(t.NoteUpdatedAt == best.NoteUpdatedAt && t.Timestamp > best.Timestamp) {
			best = t
		}
	}
	if best == nil {
		return "", false
	}
	return best.Note, true
}

// LegacyResolver reads the per-token note kept by older versions.
type LegacyResolver struct {
	Store LegacyNoteStore
}

func (r LegacyResolver) Name() string { return "legacy" }

func (r LegacyResolver) Resolve(ctx context.Context, walletAddress, tokenAddress string) (string, bool, error) {
	text, err := r.Store.Get(ctx, LegacyNoteKey(walletAddress, tokenAddress))
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(text) == "" {
		return "", false, nil
	}
	return text, true, nil
}

// FailedWrite records a trade whose note could not be written.
type FailedWrite struct {
	Identifier string `json:"identifier"`
	Err        error  `json:"-"`
	Message    string `json:"error"`
}

// SaveResult summarizes a best-effort note save across all trades of a token.
type SaveResult struct {
	Succeeded    []string      `json:"succeeded"`
	Failed       []FailedWrite `json:"failed"`
	LegacyWrite  bool          `json:"legacy_written"`
	LegacyErr    error         `json:"-"`
	LegacyErrMsg string        `json:"legacy_error,omitempty"`
}

// Outcome classifies a save as "full", "partial", "failed" or "none" (no trades known).
func (r SaveResult) Outcome() string {
	switch {
	case len(r.Succeeded) == 0 && len(r.Failed) == 0:
		return "none"
	case len(r.Failed) == 0:
		return "full"
	case len(r.Succeeded) == 0:
		return "failed"
	default:
		return "partial"
	}
}

// Err returns a KindPartialWrite error when any trade write failed, nil otherwise.
func (r SaveResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("trade %q: %w", f.Identifier, f.Err))
	}
	return NewError(KindPartialWrite, "save note", errors.Join(errs...))
}

// ErrMissingIdentifier is recorded for stored trades that cannot be addressed individually.
var ErrMissingIdentifier = errors.New("trade has no identifier")

// NotesReconciler resolves and saves the per-token note across storage tiers.
type NotesReconciler struct {
	store     TradeStore
	legacy    LegacyNoteStore
	resolvers []Resolver
	logger    *zap.Logger
}

// NewNotesReconciler builds the default chain: trade store first, then the legacy store.
// A nil legacy store disables the legacy tier.
func NewNotesReconciler(store TradeStore, legacy LegacyNoteStore, logger *zap.Logger) *NotesReconciler {
	resolvers := []Resolver{StoreResolver{Store: store}}
	if legacy != nil {
		resolvers = append(resolvers, LegacyResolver{Store: legacy})
	}
	return &NotesReconciler{
		store:     store,
		legacy:    legacy,
		resolvers: resolvers,
		logger:    logger.Named("notes"),
	}
}

// WithResolvers replaces the resolution chain. Writes still go to the trade and legacy stores.
func (n *NotesReconciler) WithResolvers(resolvers ...Resolver) *NotesReconciler {
	n.resolvers = resolvers
	return n
}

// ResolveNote walks the chain and returns the first non-empty note, or "".
// A failing tier is logged and skipped.
func (n *NotesReconciler) ResolveNote(ctx context.Context, walletAddress, tokenAddress string) string {
	for _, r := range n.resolvers {
		text, ok, err := r.Resolve(ctx, walletAddress, tokenAddress)
		if err != nil {
			n.logger.Warn("Note resolver failed, falling back",
				zap.String("resolver", r.Name()),
				zap.String("wallet", walletAddress),
				zap.String("token", tokenAddress),
				zap.Error(err),
			)
			continue
		}
		if ok {
			return text
		}
	}
	return ""
}

// SaveNote writes text onto every stored trade of the token, one at a time, and mirrors it
// to the legacy store. Individual failures are collected rather than aborting the loop.
// The returned error is only set when the trades could not be listed at all; it carries the
// store failure's ErrorKind, KindUnknown unless the store classified it.
func (n *NotesReconciler) SaveNote(ctx context.Context, walletAddress, tokenAddress, text string) (*SaveResult, error) {
	l := n.logger.With(zap.String("wallet", walletAddress), zap.String("token", tokenAddress))

	trades, err := n.store.ListTrades(ctx, walletAddress, tokenAddress)
	if err != nil {
		return nil, classify("save note", fmt.Errorf("could not list trades for note: %w", err))
	}

	res := &SaveResult{}
	for _, t := range trades {
		if t.Identifier == "" {
			res.Failed = append(res.Failed, FailedWrite{Err: ErrMissingIdentifier, Message: ErrMissingIdentifier.Error()})
			continue
		}
		if err := n.store.UpdateNote(ctx, walletAddress, t.Identifier, text); err != nil {
			l.Warn("Failed to write note onto trade", zap.String("trade", t.Identifier), zap.Error(err))
			res.Failed = append(res.Failed, FailedWrite{Identifier: t.Identifier, Err: err, Message: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, t.Identifier)
	}

	if n.legacy != nil {
		if err := n.legacy.Set(ctx, LegacyNoteKey(walletAddress, tokenAddress), text); err != nil {
			l.Warn("Failed to mirror note to legacy store", zap.Error(err))
			res.LegacyErr = err
			res.LegacyErrMsg = err.Error()
		} else {
			res.LegacyWrite = true
		}
	}

	l.Info("Saved note",
		zap.String("outcome", res.Outcome()),
		zap.Int("succeeded", len(res.Succeeded)),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}
