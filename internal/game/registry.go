package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages game registration and lookup by game type.
type Registry struct {
	games map[string]Game
	mu    sync.RWMutex
}

// NewRegistry creates a registry holding games.
func NewRegistry(games ...Game) (*Registry, error) {
	r := &Registry{
		games: make(map[string]Game),
	}
	for _, g := range games {
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a game to the registry.
// If a game with the same type already exists, it will be replaced.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Type() == "" {
		return fmt.Errorf("game type cannot be empty")
	}
	if g.BaseReward().IsNegative() {
		return fmt.Errorf("game %s has negative base reward", g.Type())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Type()] = g
	return nil
}

// Get retrieves a game by its type.
func (r *Registry) Get(gameType string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[gameType]
	return g, ok
}

// List returns all registered games sorted by type.
// The returned slice is a copy, so modifications won't affect the registry.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Type() < games[j].Type() })
	return games
}

// Name returns the display name of a game type, or the type itself if unknown.
func (r *Registry) Name(gameType string) string {
	if g, ok := r.Get(gameType); ok {
		return g.Name()
	}
	return gameType
}

// Types returns the registered game types in sorted order.
func (r *Registry) Types() []string {
	games := r.List()
	types := make([]string, len(games))
	for i, g := range games {
		types[i] = g.Type()
	}
	return types
}
