package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"trade-journal-go/internal/journal"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	svc     *journal.Service
	wallets []string
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, svc *journal.Service, wallets []string) *APIHandler {
	return &APIHandler{log: log, svc: svc, wallets: wallets}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.StatusHandler)
	mux.HandleFunc("GET /api/wallets/{wallet}/trades", h.TradesHandler)
	mux.HandleFunc("POST /api/wallets/{wallet}/trades/more", h.MoreTradesHandler)
	mux.HandleFunc("POST /api/wallets/{wallet}/refresh", h.RefreshHandler)
	mux.HandleFunc("GET /api/wallets/{wallet}/positions", h.PositionsHandler)
	mux.HandleFunc("GET /api/wallets/{wallet}/positions/{token}", h.PositionHandler)
	mux.HandleFunc("GET /api/wallets/{wallet}/tokens/{token}/note", h.GetNoteHandler)
	mux.HandleFunc("PUT /api/wallets/{wallet}/tokens/{token}/note", h.SaveNoteHandler)
}

// WalletStatus describes the cache state of one configured wallet.
type WalletStatus struct {
	Wallet    string     `json:"wallet"`
	Cached    bool       `json:"cached"`
	WrittenAt *time.Time `json:"written_at,omitempty"`
}

// StatusHandler reports the configured wallets and whether their history is cached.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	cache := h.svc.Loader().Cache()
	statuses := make([]WalletStatus, 0, len(h.wallets))
	for _, wallet := range h.wallets {
		st := WalletStatus{Wallet: wallet, Cached: cache.IsValid(wallet, 0)}
		if at, ok := cache.WrittenAt(wallet); ok {
			st.WrittenAt = &at
		}
		statuses = append(statuses, st)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"wallets":   statuses,
		"cache_ttl": cache.TTL().String(),
	})
}

// TradesHandler returns one page of a wallet's trades.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		h.badRequest(w, "invalid page")
		return
	}
	pageSize, err := intParam(q.Get("page_size"), 0)
	if err != nil {
		h.badRequest(w, "invalid page_size")
		return
	}
	var minTs *int64
	if v := q.Get("min_timestamp"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.badRequest(w, "invalid min_timestamp")
			return
		}
		minTs = &ts
	}

	res, err := h.svc.Loader().Load(r.Context(), r.PathValue("wallet"), page, pageSize, minTs)
	if err != nil {
		h.writeError(w, "load trades", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// MoreTradesHandler appends the next page of a wallet's trades.
func (h *APIHandler) MoreTradesHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Loader().LoadMore(r.Context(), r.PathValue("wallet"))
	if err != nil {
		h.writeError(w, "load more trades", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// RefreshHandler re-fetches a wallet's full history, bypassing the cache.
func (h *APIHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Loader().Refresh(r.Context(), r.PathValue("wallet"))
	if err != nil {
		h.writeError(w, "refresh", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// PositionsHandler returns a summary for every token the wallet traded.
func (h *APIHandler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.Positions(r.Context(), r.PathValue("wallet"))
	if err != nil {
		h.writeError(w, "positions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

// PositionHandler returns the summary of one token.
func (h *APIHandler) PositionHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Position(r.Context(), r.PathValue("wallet"), r.PathValue("token"))
	if err != nil {
		h.writeError(w, "position", err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

type noteBody struct {
	Note string `json:"note"`
}

// GetNoteHandler resolves the note of a wallet/token pair.
func (h *APIHandler) GetNoteHandler(w http.ResponseWriter, r *http.Request) {
	note := h.svc.Notes().ResolveNote(r.Context(), r.PathValue("wallet"), r.PathValue("token"))
	h.writeJSON(w, http.StatusOK, noteBody{Note: note})
}

// SaveNoteHandler writes the note onto every stored trade of the token.
// A save that only reached some trades answers 207 with the per-trade outcome.
func (h *APIHandler) SaveNoteHandler(w http.ResponseWriter, r *http.Request) {
	var body noteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	res, err := h.svc.Notes().SaveNote(r.Context(), r.PathValue("wallet"), r.PathValue("token"), body.Note)
	if err != nil {
		h.writeError(w, "save note", err)
		return
	}

	status := http.StatusOK
	resp := map[string]any{"outcome": res.Outcome(), "result": res}
	switch res.Outcome() {
	case "partial":
		status = http.StatusMultiStatus
		resp["message"] = journal.UserMessage(res.Err())
	case "failed":
		status = http.StatusInternalServerError
		resp["message"] = journal.UserMessage(res.Err())
	}
	h.writeJSON(w, status, resp)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *APIHandler) writeError(w http.ResponseWriter, op string, err error) {
	kind := journal.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", zap.String("op", op), zap.Stringer("kind", kind), zap.Error(err))
	} else {
		h.log.Warn("Request failed", zap.String("op", op), zap.Stringer("kind", kind), zap.Error(err))
	}
	h.writeJSON(w, status, errorResponse{Error: kind.String(), Message: journal.UserMessage(err)})
}

func (h *APIHandler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: journal.KindValidation.String(), Message: msg})
}

func statusFor(kind journal.ErrorKind) int {
	switch kind {
	case journal.KindValidation:
		return http.StatusBadRequest
	case journal.KindRateLimited:
		return http.StatusTooManyRequests
	case journal.KindUpstreamUnavailable, journal.KindAuthentication:
		return http.StatusBadGateway
	case journal.KindTimeout:
		return http.StatusGatewayTimeout
	case journal.KindPartialWrite:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative value")
	}
	return n, nil
}

// writeJSON writes v with status. Encoding failures can only be logged since the header is sent.
func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write JSON response", zap.Int("status", status), zap.Error(err))
	}
}
