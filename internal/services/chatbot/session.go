package chatbot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DevDizzle/profit-scout/internal/domain/chat"
	"github.com/DevDizzle/profit-scout/pkg/errors"
)

// KV is the key-value surface the session store needs from Redis
type KV interface {
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Exchange is the sender's most recent request/reply pair
type Exchange struct {
	UserMessage string
	Reply       string
}

// SessionStore keeps short-lived per-sender conversation context so
// follow-up recommendation requests see the previous question and do not
// repeat earlier suggestions. Keys expire after the configured TTL; two
// senders never share state.
type SessionStore struct {
	kv  KV
	ttl time.Duration
}

// NewSessionStore creates a session store with the given context TTL
func NewSessionStore(kv KV, ttl time.Duration) *SessionStore {
	return &SessionStore{kv: kv, ttl: ttl}
}

func sessionKey(senderID string) string {
	return "chat:context:" + senderID
}

// SaveExchange stores the sender's latest message and the assistant's reply
// as the session context, resetting the TTL
func (s *SessionStore) SaveExchange(ctx context.Context, senderID, userText, replyText string) error {
	msgs := []chat.Message{
		chat.NewMessage(chat.RoleUser, userText),
		chat.NewMessage(chat.RoleAssistant, replyText),
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return errors.Wrap(err, "encode session messages")
	}
	return s.kv.SetString(ctx, sessionKey(senderID), string(data), s.ttl)
}

// LoadContext returns the sender's stored exchange, or a zero Exchange when
// none exists or it has expired
func (s *SessionStore) LoadContext(ctx context.Context, senderID string) (Exchange, error) {
	val, err := s.kv.GetString(ctx, sessionKey(senderID))
	if errors.Is(err, errors.ErrNotFound) {
		return Exchange{}, nil
	}
	if err != nil {
		return Exchange{}, errors.Wrap(err, "load session context")
	}

	var msgs []chat.Message
	if err := json.Unmarshal([]byte(val), &msgs); err != nil {
		// Stale or hand-edited key: treat as no context
		return Exchange{}, nil
	}

	var ex Exchange
	for _, msg := range msgs {
		switch msg.Role {
		case chat.RoleUser:
			ex.UserMessage = msg.Text
		case chat.RoleAssistant:
			ex.Reply = msg.Text
		}
	}
	return ex, nil
}

// ClearContext drops a sender's stored context
func (s *SessionStore) ClearContext(ctx context.Context, senderID string) error {
	return s.kv.Delete(ctx, sessionKey(senderID))
}
