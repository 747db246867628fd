package modes

import "github.com/moodtherapist/backend/internal/model/chat"

// Store exposes mode retrieval for HTTP handlers.
type Store interface {
	List() []Option
	FindByID(id chat.Mode) (Option, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Option
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied modes.
func NewMemoryStore(items []Option) *MemoryStore {
	return &MemoryStore{items: append([]Option(nil), items...)}
}

// List returns the configured modes.
func (s *MemoryStore) List() []Option {
	return append([]Option(nil), s.items...)
}

// FindByID looks up a mode by identifier.
func (s *MemoryStore) FindByID(id chat.Mode) (Option, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Option{}, false
}
