// Package history provides the bounded per-chat conversation context used
// to prime AI provider requests. Entries are kept in memory for the process
// lifetime only; each chat holds at most a fixed number of recent turns,
// with the oldest turns dropped first.
package history

import (
	"log/slog"
	"sync"
	"time"
)

// Role identifies the author of a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is a single conversation turn in a chat.
type Entry struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// DefaultCap is used when a Store is created with a non-positive cap.
const DefaultCap = 20

// Store holds bounded conversation history keyed by chat ID.
//
// Telegram updates for the same chat may be dispatched on different
// goroutines, so the store serializes access internally; callers do not
// need any additional locking.
type Store struct {
	mu     sync.Mutex
	cap    int
	chats  map[int64][]Entry
	logger *slog.Logger
}

// NewStore creates a Store that retains at most cap entries per chat.
func NewStore(cap int, logger *slog.Logger) *Store {
	if cap <= 0 {
		cap = DefaultCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cap:    cap,
		chats:  make(map[int64][]Entry),
		logger: logger.With("component", "history"),
	}
}

// Cap returns the configured per-chat entry limit.
func (s *Store) Cap() int {
	return s.cap
}

// Append adds a conversation turn for the given chat, evicting the oldest
// entry when the chat is at capacity. The chat is created on first use.
func (s *Store) Append(chatID int64, role Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.chats[chatID], Entry{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	if len(entries) > s.cap {
		// FIFO truncation: copy forward so the backing array does not
		// pin evicted entries.
		trimmed := make([]Entry, s.cap)
		copy(trimmed, entries[len(entries)-s.cap:])
		entries = trimmed
	}
	s.chats[chatID] = entries

	s.logger.Debug("appended history entry", "chat_id", chatID, "role", role, "len", len(entries))
}

// History returns a copy of the retained entries for the chat, oldest
// first. An unseen chat yields an empty slice.
func (s *Store) History(chatID int64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.chats[chatID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Clear removes all retained entries for the chat. Used when AI is toggled
// off for a group or on an explicit /clear.
func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chats, chatID)
	s.logger.Debug("cleared history", "chat_id", chatID)
}
