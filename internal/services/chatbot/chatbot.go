package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DevDizzle/profit-scout/internal/adapters/ai"
	"github.com/DevDizzle/profit-scout/internal/domain/security"
	"github.com/DevDizzle/profit-scout/internal/domain/task"
	"github.com/DevDizzle/profit-scout/internal/metrics"
	"github.com/DevDizzle/profit-scout/internal/services/intent"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
)

const (
	greetingReply = "Hello! I'm ProfitScout, your S&P 500 analysis assistant. " +
		"Send `!analyze <ticker or company name>` for a full Buy/Hold/Sell breakdown, " +
		"or ask me to recommend a stock."

	busyReply = "I'm handling a lot of analyses right now. Please try again in a minute."

	recommendationErrorReply = "I couldn't come up with a recommendation just now. Please try again shortly."

	maxSuggestions = 3
)

// Resolver maps free-text company references to canonical tickers
type Resolver interface {
	Resolve(ctx context.Context, query string) (security.Resolved, error)
}

// TaskStarter launches analysis tasks
type TaskStarter interface {
	Start(ticker, companyName string) (*task.Task, error)
}

// Reply is the front door's answer to one inbound message. Status, Ticker,
// CompanyName and TaskID are set only when an analysis task was started.
type Reply struct {
	Text        string `json:"response"`
	Status      string `json:"status,omitempty"`
	Ticker      string `json:"ticker,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	TaskID      string `json:"task_id,omitempty"`
}

// StatusProcessingStarted marks replies that kicked off an analysis task
const StatusProcessingStarted = "processing_started"

// Service is the conversational front door: it classifies each message,
// answers greetings and recommendation requests inline, and hands analysis
// commands to the orchestrator.
type Service struct {
	resolver      Resolver
	securities    security.Repository
	tasks         TaskStarter
	generator     ai.Generator
	sessions      *SessionStore
	maxMessageLen int
	log           *logger.Logger
}

// NewService creates the chatbot front door
func NewService(
	resolver Resolver,
	securities security.Repository,
	tasks TaskStarter,
	generator ai.Generator,
	sessions *SessionStore,
	maxMessageLen int,
) *Service {
	return &Service{
		resolver:      resolver,
		securities:    securities,
		tasks:         tasks,
		generator:     generator,
		sessions:      sessions,
		maxMessageLen: maxMessageLen,
		log:           logger.Get().With("service", "chatbot"),
	}
}

// Handle processes one inbound message from senderID and produces the reply.
// Rejections (overlong input) surface as errors for the transport layer to
// map; everything else, including downstream failures, degrades into a
// user-readable reply.
func (s *Service) Handle(ctx context.Context, senderID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, errors.Wrap(errors.ErrInvalidInput, "empty message")
	}
	if s.maxMessageLen > 0 && len(message) > s.maxMessageLen {
		metrics.ChatRejections.WithLabelValues("too_long").Inc()
		return Reply{}, errors.Wrapf(errors.ErrMessageTooLong,
			"message longer than %d characters", s.maxMessageLen)
	}

	classified := intent.Classify(message)
	metrics.ChatMessages.WithLabelValues(classified.Kind.String()).Inc()
	s.log.Debugw("Message classified", "sender", senderID, "intent", classified.Kind.String())

	switch classified.Kind {
	case intent.Greeting:
		return Reply{Text: greetingReply}, nil
	case intent.AnalysisCommand:
		return s.handleAnalysis(ctx, classified.TickerText)
	case intent.RecommendationRequest:
		return s.handleRecommendation(ctx, senderID, message)
	default:
		return s.handleFreeText(ctx, senderID, message)
	}
}

// handleAnalysis resolves the requested security and starts an analysis task
func (s *Service) handleAnalysis(ctx context.Context, query string) (Reply, error) {
	resolved, err := s.resolver.Resolve(ctx, query)
	switch {
	case errors.Is(err, errors.ErrTickerNotFound), errors.Is(err, errors.ErrInvalidInput):
		return Reply{Text: s.notRecognizedReply(ctx, query)}, nil
	case err != nil:
		s.log.ErrorWithContext(ctx, errors.Wrap(err, "resolve for analysis"), nil)
		return Reply{Text: "Something went wrong looking that up. Please try again."}, nil
	}

	return s.startAnalysis(resolved)
}

// handleFreeText tries the whole message as a ticker or company reference;
// "AAPL" on its own starts an analysis just like `!analyze AAPL`. Anything
// that does not resolve is treated as an open-ended stock question.
func (s *Service) handleFreeText(ctx context.Context, senderID, message string) (Reply, error) {
	resolved, err := s.resolver.Resolve(ctx, message)
	if err == nil {
		return s.startAnalysis(resolved)
	}
	if !errors.Is(err, errors.ErrTickerNotFound) && !errors.Is(err, errors.ErrInvalidInput) {
		s.log.Warnw("Resolve failed for free text", "sender", senderID, "error", err)
	}
	return s.handleRecommendation(ctx, senderID, message)
}

// startAnalysis launches a task for an already-resolved security
func (s *Service) startAnalysis(resolved security.Resolved) (Reply, error) {
	t, err := s.tasks.Start(resolved.Ticker, resolved.Name)
	if errors.Is(err, errors.ErrRateLimited) {
		return Reply{Text: busyReply}, nil
	}
	if err != nil {
		return Reply{}, errors.Wrap(err, "start analysis task")
	}

	text := fmt.Sprintf("Starting analysis for %s (%s). I'll stream the result as soon as it's ready.",
		resolved.Name, resolved.Ticker)
	return Reply{
		Text:        text,
		Status:      StatusProcessingStarted,
		Ticker:      resolved.Ticker,
		CompanyName: resolved.Name,
		TaskID:      t.ID,
	}, nil
}

// notRecognizedReply builds the guidance reply for an unresolvable query,
// with best-effort suggestions. Suggestion failure falls back to plain
// guidance; the user always gets an answer.
func (s *Service) notRecognizedReply(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Please include a ticker or company name, like `!analyze MSFT`."
	}

	base := fmt.Sprintf("I don't recognize %q as an S&P 500 ticker or company name.", query)
	text, err := s.Suggest(ctx, query)
	if err != nil {
		return base + " Try the exact ticker, like `!analyze AAPL`."
	}
	return base + " " + text
}

// Suggest produces suggestion text for a free-text query, seeding the model
// with close matches from the reference table when any exist. When the model
// is down but matches were found, it degrades to listing the matches.
func (s *Service) Suggest(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "empty query")
	}

	candidates, err := s.securities.SuggestByPrefix(ctx, query, maxSuggestions)
	if err != nil {
		s.log.Warnw("Suggestion lookup failed", "query", query, "error", err)
		candidates = nil
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Prompt:          buildSuggestionPrompt(query, candidates),
		Temperature:     0.7,
		MaxOutputTokens: 256,
	})
	metrics.RecordLLMCall(string(s.generator.Name()), "suggestion", time.Since(start), err)
	if err != nil {
		if len(candidates) == 0 {
			return "", errors.Wrap(err, "suggestion call")
		}
		return "Did you mean: " + joinResolved(candidates) + "?", nil
	}
	return text, nil
}

func buildSuggestionPrompt(query string, candidates []security.Resolved) string {
	var b strings.Builder
	b.WriteString("You are ProfitScout, a helpful S&P 500 stock assistant. ")
	fmt.Fprintf(&b, "The user asked about %q, which is not an exact S&P 500 match. ", query)
	b.WriteString("Suggest the most likely companies they meant, one line each with ticker and name.\n")
	if len(candidates) > 0 {
		b.WriteString("Close matches from the S&P 500 list: ")
		b.WriteString(joinResolved(candidates))
		b.WriteString(".\n")
	}
	b.WriteString("End by inviting the user to run `!analyze <ticker>` on a pick.")
	return b.String()
}

func joinResolved(matches []security.Resolved) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("%s (%s)", m.Ticker, m.Name)
	}
	return strings.Join(parts, ", ")
}

// handleRecommendation answers a stock-ideas request inline via the language
// model, threading prior session context so repeat asks get fresh names
func (s *Service) handleRecommendation(ctx context.Context, senderID, message string) (Reply, error) {
	prior, err := s.sessions.LoadContext(ctx, senderID)
	if err != nil {
		s.log.Warnw("Session context unavailable", "sender", senderID, "error", err)
	}

	prompt := buildRecommendationPrompt(message, prior)

	start := time.Now()
	text, err := s.generator.Generate(ctx, ai.GenerateRequest{
		Prompt:          prompt,
		Temperature:     0.7,
		MaxOutputTokens: 512,
	})
	metrics.RecordLLMCall(string(s.generator.Name()), "recommendation", time.Since(start), err)
	if err != nil {
		s.log.ErrorWithContext(ctx, errors.Wrap(err, "recommendation call"), nil)
		return Reply{Text: recommendationErrorReply}, nil
	}

	if err := s.sessions.SaveExchange(ctx, senderID, message, text); err != nil {
		s.log.Warnw("Failed to save session context", "sender", senderID, "error", err)
	}
	return Reply{Text: text}, nil
}

func buildRecommendationPrompt(message string, prior Exchange) string {
	var b strings.Builder
	b.WriteString("You are ProfitScout, a helpful S&P 500 stock assistant. ")
	b.WriteString("Suggest one or two S&P 500 companies worth a closer look, with one sentence of reasoning each. ")
	b.WriteString("End by inviting the user to run `!analyze <ticker>` on a pick.\n\n")
	if prior.UserMessage != "" {
		b.WriteString("The user previously asked: ")
		b.WriteString(prior.UserMessage)
		b.WriteString("\n")
	}
	if prior.Reply != "" {
		b.WriteString("You previously suggested:\n")
		b.WriteString(prior.Reply)
		b.WriteString("\nDo not repeat those names.\n\n")
	}
	b.WriteString("User message: ")
	b.WriteString(message)
	return b.String()
}
