package journal

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-journal-go/internal/models"
)

// TokenSummary is a position together with its note, as shown in the journal.
type TokenSummary struct {
	Position
	Note       string `json:"note"`
	PriceKnown bool   `json:"price_known"`
}

// Service answers position queries by combining the loader, a price oracle and the notes reconciler.
type Service struct {
	loader *Loader
	oracle PriceOracle
	notes  *NotesReconciler
	logger *zap.Logger
}

// NewService creates a new Service.
func NewService(loader *Loader, oracle PriceOracle, notes *NotesReconciler, logger *zap.Logger) *Service {
	return &Service{
		loader: loader,
		oracle: oracle,
		notes:  notes,
		logger: logger.Named("service"),
	}
}

// Loader exposes the paginated loader for list views.
func (s *Service) Loader() *Loader { return s.loader }

// Notes exposes the notes reconciler.
func (s *Service) Notes() *NotesReconciler { return s.notes }

// Position computes the current position of one token held by a wallet.
func (s *Service) Position(ctx context.Context, walletAddress, tokenAddress string) (*TokenSummary, error) {
	trades, err := s.loader.All(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	summary := s.summarize(ctx, walletAddress, tokenAddress, FilterByToken(trades, tokenAddress))
	return &summary, nil
}

// Positions computes one summary per token the wallet has traded, ordered by token address.
func (s *Service) Positions(ctx context.Context, walletAddress string) ([]TokenSummary, error) {
	trades, err := s.loader.All(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	groups := GroupByToken(trades)
	tokens := make([]string, 0, len(groups))
	for token := range groups {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	summaries := make([]TokenSummary, 0, len(tokens))
	for _, token := range tokens {
		summaries = append(summaries, s.summarize(ctx, walletAddress, token, groups[token]))
	}
	return summaries, nil
}

func (s *Service) summarize(ctx context.Context, walletAddress, tokenAddress string, trades []models.Trade) TokenSummary {
	price, known := s.price(ctx, tokenAddress)
	pos := ComputePosition(trades, price)
	pos.WalletAddress = walletAddress
	pos.TokenAddress = tokenAddress

	return TokenSummary{
		Position:   pos,
		Note:       s.notes.ResolveNote(ctx, walletAddress, tokenAddress),
		PriceKnown: known,
	}
}

// price falls back to zero when the oracle fails; a missing price only affects unrealized P&L.
func (s *Service) price(ctx context.Context, tokenAddress string) (decimal.Decimal, bool) {
	if s.oracle == nil {
		return decimal.Zero, false
	}
	p, err := s.oracle.CurrentUnitPrice(ctx, tokenAddress)
	if err != nil {
		s.logger.Warn("Price unavailable, using zero",
			zap.String("token", tokenAddress),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err),
		)
		return decimal.Zero, false
	}
	return p, !p.IsZero()
}
