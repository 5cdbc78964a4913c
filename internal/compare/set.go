package compare

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

// The comparison view opens for MinCompare..MaxSize members; Add stops at MaxSize.
const (
	MinCompare = 2
	MaxSize    = 3
)

// Catalog is the membership test prune runs against.
type Catalog interface {
	Has(id string) bool
}

// Set is the ordered comparison selection. It is not owned by the session and survives logout.
type Set struct {
	gw  *persist.Gateway
	log *zap.Logger

	mu  sync.Mutex
	ids []string
}

func NewSet(gw *persist.Gateway, log *zap.Logger) *Set {
	return &Set{gw: gw, log: kit.OrNop(log)}
}

func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Set) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, id)
}

// CanCompare reports whether the comparison view may open.
func (s *Set) CanCompare() bool {
	n := s.Len()
	return n >= MinCompare && n <= MaxSize
}

// Add appends id. It reports false, changing nothing, when id is present or the set is full.
func (s *Set) Add(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || len(s.ids) >= MaxSize || slices.Contains(s.ids, id) {
		return false
	}
	s.ids = append(s.ids, id)
	s.persistLocked(ctx)
	return true
}

func (s *Set) Remove(ctx context.Context, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.ids)
	s.ids = slices.DeleteFunc(s.ids, func(id string) bool { return slices.Contains(ids, id) })
	if len(s.ids) != n {
		s.persistLocked(ctx)
	}
}

func (s *Set) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.persistLocked(ctx)
}

// Prune drops every member the catalog no longer has, keeping the order of the rest.
func (s *Set) Prune(ctx context.Context, catalog Catalog) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []string
	s.ids = slices.DeleteFunc(s.ids, func(id string) bool {
		if catalog.Has(id) {
			return false
		}
		dropped = append(dropped, id)
		return true
	})
	if len(dropped) > 0 {
		s.log.Info("pruned comparison set", zap.Strings("dropped", dropped))
		s.persistLocked(ctx)
	}
	return dropped
}

func (s *Set) Restore(ctx context.Context) error {
	var ids []string
	ok, err := s.gw.Load(ctx, persist.KeyComparison, &ids)
	if err != nil || !ok {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = s.ids[:0]
	for _, id := range ids {
		if id != "" && len(s.ids) < MaxSize && !slices.Contains(s.ids, id) {
			s.ids = append(s.ids, id)
		}
	}
	return nil
}

func (s *Set) persistLocked(ctx context.Context) {
	if err := s.gw.Save(ctx, persist.KeyComparison, s.ids); err != nil {
		s.log.Warn("persist comparison set failed", zap.Error(err))
	}
}
