package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/DevDizzle/profit-scout/internal/domain/security"
	"github.com/DevDizzle/profit-scout/internal/metrics"
	"github.com/DevDizzle/profit-scout/internal/services/chatbot"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
	"github.com/DevDizzle/profit-scout/pkg/ratelimit"
)

// Resolver validates free-text ticker queries
type Resolver interface {
	Resolve(ctx context.Context, query string) (security.Resolved, error)
}

// Chatbot handles inbound chat messages and free-text suggestion queries
type Chatbot interface {
	Handle(ctx context.Context, senderID, message string) (chatbot.Reply, error)
	Suggest(ctx context.Context, query string) (string, error)
}

// Handlers bundles the REST endpoints with their dependencies
type Handlers struct {
	chat     Chatbot
	resolver Resolver
	limiter  *ratelimit.KeyedLimiter
	log      *logger.Logger
}

// NewHandlers creates the REST handler set
func NewHandlers(chat Chatbot, resolver Resolver, limiter *ratelimit.KeyedLimiter) *Handlers {
	return &Handlers{
		chat:     chat,
		resolver: resolver,
		limiter:  limiter,
		log:      logger.Get().With("component", "api"),
	}
}

type chatRequest struct {
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

// HandleChat is the front door: POST /chat with {sender_id, message}.
// Per-sender rate limiting happens here because the sender identity lives in
// the body, not the connection.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrInvalidInput, "malformed request body"))
		return
	}

	req.SenderID = strings.TrimSpace(req.SenderID)
	if req.SenderID == "" {
		writeError(w, errors.Wrap(errors.ErrInvalidInput, "sender_id is required"))
		return
	}

	if !h.limiter.Allow(req.SenderID) {
		metrics.ChatRejections.WithLabelValues("rate_limit").Inc()
		h.log.Debugw("Sender rate limited", "sender", req.SenderID)
		writeError(w, errors.ErrRateLimited)
		return
	}

	reply, err := h.chat.Handle(r.Context(), req.SenderID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

type validateResponse struct {
	Valid       bool   `json:"valid"`
	Ticker      string `json:"ticker,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// HandleValidate checks whether a query resolves to a known security:
// GET /validate/{query}. An unknown name is a valid=false answer, not an
// error.
func (h *Handlers) HandleValidate(w http.ResponseWriter, r *http.Request) {
	query := r.PathValue("query")

	resolved, err := h.resolver.Resolve(r.Context(), query)
	switch {
	case errors.Is(err, errors.ErrTickerNotFound):
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
	case err != nil:
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, validateResponse{
			Valid:       true,
			Ticker:      resolved.Ticker,
			CompanyName: resolved.Name,
		})
	}
}

type suggestResponse struct {
	Suggestions string `json:"suggestions"`
}

// HandleSuggest returns suggestion text for a free-text query:
// GET /suggest/{query}
func (h *Handlers) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.PathValue("query"))
	if query == "" {
		writeError(w, errors.Wrap(errors.ErrInvalidInput, "empty query"))
		return
	}

	text, err := h.chat.Suggest(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestResponse{Suggestions: text})
}
