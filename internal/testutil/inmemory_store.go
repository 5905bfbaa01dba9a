package testutil

import (
	"context"
	"reflect"
	"sort"
	"sync"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
)

// FilterFn decides whether an item matches a repository filter
type FilterFn[T any] func(ctx context.Context, item T, filter interface{}) bool

// SortFn orders two items; nil keeps creation order
type SortFn[T any] func(i, j T) bool

// InMemoryStore is a generic map-backed table. Mutations made inside an
// InMemoryClient transaction are undone when the transaction fails.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
	}
}

func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewError("item already exists").
			WithReportableDetails(map[string]interface{}{"id": id}).
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[id] = shallowCopy(item)
	s.order = append(s.order, id)

	recordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.remove(id)
	})
	return nil
}

func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, ierr.NewError("item not found").
			WithReportableDetails(map[string]interface{}{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return shallowCopy(item), nil
}

func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.items[id]
	if !ok {
		return ierr.NewError("item not found").
			WithReportableDetails(map[string]interface{}{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = shallowCopy(item)

	recordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items[id] = prev
	})
	return nil
}

// UpdateIf replaces the item only when cond holds for the stored one
func (s *InMemoryStore[T]) UpdateIf(ctx context.Context, id string, item T, cond func(stored T) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.items[id]
	if !ok {
		return false, ierr.NewError("item not found").
			WithReportableDetails(map[string]interface{}{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	if !cond(prev) {
		return false, nil
	}
	s.items[id] = shallowCopy(item)

	recordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items[id] = prev
	})
	return true, nil
}

func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.items[id]
	if !ok {
		return ierr.NewError("item not found").
			WithReportableDetails(map[string]interface{}{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	s.remove(id)

	recordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items[id] = prev
		s.order = append(s.order, id)
	})
	return nil
}

// List returns matching items, sorted when sortFn is given, paginated when
// filter implements types.BaseFilter
func (s *InMemoryStore[T]) List(ctx context.Context, filter interface{}, filterFn FilterFn[T], sortFn SortFn[T]) ([]T, error) {
	s.mu.RLock()
	var out []T
	for _, id := range s.order {
		item := s.items[id]
		if filterFn == nil || filterFn(ctx, item, filter) {
			out = append(out, shallowCopy(item))
		}
	}
	s.mu.RUnlock()

	if sortFn != nil {
		sort.SliceStable(out, func(i, j int) bool { return sortFn(out[i], out[j]) })
	}

	if bf, ok := filter.(types.BaseFilter); ok && !isNil(bf) && !bf.IsUnlimited() {
		start := bf.GetOffset()
		if start > len(out) {
			return []T{}, nil
		}
		end := start + bf.GetLimit()
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (s *InMemoryStore[T]) Count(ctx context.Context, filter interface{}, filterFn FilterFn[T]) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.order {
		if filterFn == nil || filterFn(ctx, s.items[id], filter) {
			count++
		}
	}
	return count, nil
}

// Clear removes all items
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.order = nil
}

func (s *InMemoryStore[T]) remove(id string) {
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// shallowCopy copies the struct behind a pointer so callers mutating what
// they read do not mutate the stored row
func shallowCopy[T any](item T) T {
	v := reflect.ValueOf(item)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() {
		return item
	}
	c := reflect.New(v.Elem().Type())
	c.Elem().Set(v.Elem())
	return c.Interface().(T)
}

func isNil(v interface{}) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
