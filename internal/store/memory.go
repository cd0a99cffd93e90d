package store

import (
	"slices"
	"strings"
	"sync"

	"github.com/aaronzipp/avalon-alone/internal/session"
)

// GameStore keeps the live game sessions, keyed by game code
type GameStore struct {
	games map[string]*session.Session
	mu    sync.RWMutex
}

// NewGameStore creates a new game store
func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*session.Session),
	}
}

// Get retrieves a game by code
func (s *GameStore) Get(code string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, exists := s.games[normalize(code)]
	return game, exists
}

// Add stores a game under its code. It reports false if the code is taken.
func (s *GameStore) Add(game *session.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := normalize(game.Code)
	if _, exists := s.games[code]; exists {
		return false
	}
	s.games[code] = game
	return true
}

// Delete removes a game and returns it
func (s *GameStore) Delete(code string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = normalize(code)
	game, exists := s.games[code]
	delete(s.games, code)
	return game, exists
}

// Exists checks if a game code is taken
func (s *GameStore) Exists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.games[normalize(code)]
	return exists
}

// List returns every stored game, oldest first
func (s *GameStore) List() []*session.Session {
	s.mu.RLock()
	games := make([]*session.Session, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.RUnlock()

	slices.SortFunc(games, func(a, b *session.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return games
}

// Count returns the number of stored games
func (s *GameStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
