package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"meal-planner/internal/logger"
)

// ErrInvalidMeal is returned when a meal fails validation.
var ErrInvalidMeal = errors.New("invalid planned meal")

const storeKey = "planned_meals"

// KeyValueStore is the durable backend of the planner.
// storage.FileStore satisfies it.
type KeyValueStore interface {
	Put(key string, v any) error
	Get(key string, v any) (bool, error)
	Delete(key string) error
}

// Store holds the planned meals of the week. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	kv        KeyValueStore
	log       *logger.Logger
	meals     []PlannedMeal
	observers map[int]func([]PlannedMeal)
	nextObs   int
}

// NewStore loads the persisted meals from kv.
func NewStore(kv KeyValueStore, log *logger.Logger) (*Store, error) {
	s := &Store{
		kv:        kv,
		log:       log,
		observers: make(map[int]func([]PlannedMeal)),
	}
	found, err := kv.Get(storeKey, &s.meals)
	if err != nil {
		return nil, fmt.Errorf("failed to load planned meals: %w", err)
	}
	if found {
		log.Debug("Loaded planned meals", "count", len(s.meals))
	}
	return s, nil
}

// AddMeal validates and plans a meal. A zero id is generated.
func (s *Store) AddMeal(ctx context.Context, meal PlannedMeal) (PlannedMeal, error) {
	if err := meal.Validate(); err != nil {
		return PlannedMeal{}, err
	}
	if meal.ID == uuid.Nil {
		meal.ID = uuid.New()
	}
	err := s.mutate(ctx, func(meals []PlannedMeal) []PlannedMeal {
		return append(meals, meal)
	})
	if err != nil {
		return PlannedMeal{}, err
	}
	return meal, nil
}

// RemoveMeal unplans a meal. Removing an unknown id is a no-op.
func (s *Store) RemoveMeal(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, func(meals []PlannedMeal) []PlannedMeal {
		return filter(meals, func(m PlannedMeal) bool { return m.ID != id })
	})
}

// RemoveMealsForRecipe unplans every meal of a deleted recipe and returns how
// many were removed.
func (s *Store) RemoveMealsForRecipe(ctx context.Context, recipeID uuid.UUID) (int, error) {
	removed := 0
	err := s.mutate(ctx, func(meals []PlannedMeal) []PlannedMeal {
		kept := filter(meals, func(m PlannedMeal) bool { return m.RecipeID != recipeID })
		removed = len(meals) - len(kept)
		return kept
	})
	return removed, err
}

// Clear unplans everything.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, func([]PlannedMeal) []PlannedMeal { return nil })
}

// MealsForDay returns the meals of a day ordered by slot.
func (s *Store) MealsForDay(day int) []PlannedMeal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []PlannedMeal
	for _, mt := range MealTypes {
		for _, m := range s.meals {
			if m.Day == day && m.MealType == mt {
				out = append(out, m)
			}
		}
	}
	return out
}

// AllMeals returns a copy of every planned meal.
func (s *Store) AllMeals() []PlannedMeal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PlannedMeal(nil), s.meals...)
}

// Subscribe registers fn to be called with a copy of the meals after every
// mutation. The returned function unregisters it.
func (s *Store) Subscribe(fn func([]PlannedMeal)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// mutate applies change, persists the result and notifies observers. An
// empty plan removes the stored key. On a persistence failure the previous
// state is kept.
func (s *Store) mutate(ctx context.Context, change func([]PlannedMeal) []PlannedMeal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	previous := s.meals
	next := change(append([]PlannedMeal(nil), previous...))
	if err := s.persist(next); err != nil {
		s.meals = previous
		s.mu.Unlock()
		s.log.Error("Failed to persist planned meals", "error", err)
		return fmt.Errorf("failed to save planned meals: %w", err)
	}
	s.meals = next
	snapshot := append([]PlannedMeal(nil), next...)
	observers := make([]func([]PlannedMeal), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	return nil
}

func (s *Store) persist(meals []PlannedMeal) error {
	if len(meals) == 0 {
		return s.kv.Delete(storeKey)
	}
	return s.kv.Put(storeKey, meals)
}

func filter(meals []PlannedMeal, keep func(PlannedMeal) bool) []PlannedMeal {
	out := meals[:0]
	for _, m := range meals {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
