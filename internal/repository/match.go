package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

// MatchRepository keeps live matches in memory. The map lock is never held while a match is locked.
type MatchRepository struct {
	mu      sync.RWMutex
	matches map[string]*entity.Match
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{
		matches: make(map[string]*entity.Match),
	}
}

// Create - stores the match, fails if the id is already taken.
func (that *MatchRepository) Create(_ context.Context, match *entity.Match) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.matches[match.ID]; ok {
		return fmt.Errorf("%w: %s is taken", apperror.ErrMatchIDUnavailable, match.ID)
	}

	that.matches[match.ID] = match

	return nil
}

func (that *MatchRepository) GetByID(_ context.Context, id string) (*entity.Match, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	match, ok := that.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrMatchNotFound, id)
	}

	return match, nil
}

// Contains - true while this exact match instance is still registered.
func (that *MatchRepository) Contains(match *entity.Match) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.matches[match.ID] == match
}

// Remove - deletes the match only if this exact instance is still registered.
func (that *MatchRepository) Remove(match *entity.Match) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.matches[match.ID] != match {
		return false
	}

	delete(that.matches, match.ID)

	return true
}

func (that *MatchRepository) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.matches)
}
