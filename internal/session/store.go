package session

import (
	"sync"
	"time"
)

// Store is the per-installation record of turns and suggestions.
// Turns live in a ring bounded by the history limit; the oldest is evicted
// first. All methods are safe for concurrent use and return copies.
type Store struct {
	mu sync.RWMutex

	limit int
	turns []Turn
	head  int // index of the oldest turn once the ring is full

	suggestions map[string]*Suggestion
	order       []string
}

// NewStore creates a store that keeps at most limit turns.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Store{
		limit:       limit,
		turns:       make([]Turn, 0, min(limit, 16)),
		suggestions: make(map[string]*Suggestion),
	}
}

// Limit returns the turn retention limit.
func (s *Store) Limit() int {
	return s.limit
}

// AppendTurn records a turn, evicting the oldest one when full.
func (s *Store) AppendTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) < s.limit {
		s.turns = append(s.turns, t)
		return
	}
	s.turns[s.head] = t
	s.head = (s.head + 1) % s.limit
}

// Turns returns all retained turns, oldest first.
func (s *Store) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(len(s.turns))
}

// RecentTurns returns up to n of the most recent turns, oldest first.
func (s *Store) RecentTurns(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(n)
}

func (s *Store) recentLocked(n int) []Turn {
	total := len(s.turns)
	if n > total {
		n = total
	}
	if n <= 0 {
		return nil
	}
	out := make([]Turn, 0, n)
	for i := total - n; i < total; i++ {
		out = append(out, s.turns[(s.head+i)%total])
	}
	return out
}

// LastTurn returns the most recent turn.
func (s *Store) LastTurn() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := s.recentLocked(1)
	if len(last) == 0 {
		return Turn{}, false
	}
	return last[0], true
}

// TurnCount returns the number of retained turns.
func (s *Store) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// AddSuggestion registers a new suggestion. Executed state is reset.
func (s *Store) AddSuggestion(sg Suggestion) error {
	if err := sg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suggestions[sg.ID]; ok {
		return ErrDuplicateID
	}
	c := sg.clone()
	c.Executed = false
	c.ExecutedAt = nil
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.suggestions[c.ID] = &c
	s.order = append(s.order, c.ID)
	return nil
}

// Suggestion returns a copy of the suggestion with the given id.
func (s *Store) Suggestion(id string) (Suggestion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.suggestions[id]
	if !ok {
		return Suggestion{}, false
	}
	return sg.clone(), true
}

// Suggestions returns all suggestions in registration order.
func (s *Store) Suggestions() []Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Suggestion, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.suggestions[id].clone())
	}
	return out
}

// SuggestionCount returns the number of registered suggestions.
func (s *Store) SuggestionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.suggestions)
}

// MarkExecuted flags the suggestion as executed at the given time and
// returns the updated record. Marking an executed suggestion again restamps it.
func (s *Store) MarkExecuted(id string, at time.Time) (Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sg, ok := s.suggestions[id]
	if !ok {
		return Suggestion{}, ErrSuggestionNotFound
	}
	stamp := at
	sg.Executed = true
	sg.ExecutedAt = &stamp
	return sg.clone(), nil
}

// Stats returns the counters and retained turns under a single lock.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.recentLocked(len(s.turns))
	st := Stats{
		Conversations: len(turns),
		Suggestions:   len(s.suggestions),
		Turns:         turns,
	}
	if n := len(turns); n > 0 {
		last := turns[n-1]
		st.Last = &last
	}
	return st
}
