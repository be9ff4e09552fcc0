package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns the task forest and persists it through a Blob after every
// mutation. A mutation is applied to a copy of the forest; the copy replaces
// the live forest only once it has been saved, so memory and storage never
// diverge.
type Store struct {
	mu    sync.Mutex
	roots []Task

	blob   Blob
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Store)

// WithIDGenerator replaces the default uuid generator. fn must return ids
// unique across the forest.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func newStore(blob Blob, opts ...Option) *Store {
	s := &Store{
		blob:   blob,
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the forest from blob. Missing data yields an empty forest.
// Data in an older shape is migrated and saved back immediately. Bytes that
// cannot be decoded produce an error wrapping ErrMalformedStorage; the caller
// chooses between aborting and Reset.
func Open(ctx context.Context, blob Blob, opts ...Option) (*Store, error) {
	s := newStore(blob, opts...)

	data, ok, err := blob.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}
	if !ok {
		s.roots = []Task{}
		s.logger.Info("store_loaded", slog.Int("tasks", 0), slog.Bool("empty", true))
		observeForest(s.roots)
		return s, nil
	}

	forest, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedStorage, err)
	}

	migrated := needsMigration(forest)
	forest = Migrate(forest, s.now())

	// Rewrite unless storage already holds exactly what Encode produces.
	encoded, err := Encode(forest)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	if !bytes.Equal(encoded, data) {
		if err := s.save(ctx, encoded); err != nil {
			return nil, err
		}
	}
	s.roots = forest

	s.logger.Info("store_loaded",
		slog.Int("tasks", Count(forest)),
		slog.Bool("migrated", migrated),
	)
	observeForest(s.roots)
	return s, nil
}

// Reset starts an empty forest and overwrites whatever blob holds.
func Reset(ctx context.Context, blob Blob, opts ...Option) (*Store, error) {
	s := newStore(blob, opts...)
	empty := []Task{}
	if err := s.persist(ctx, empty); err != nil {
		return nil, err
	}
	s.roots = empty
	s.logger.Warn("store_reset")
	observeForest(s.roots)
	return s, nil
}

// AddTask appends a new root task and returns its id.
func (s *Store) AddTask(ctx context.Context, title string, status Status) (string, error) {
	t, err := s.CreateTask(ctx, title, status)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// CreateTask is AddTask returning a copy of the new task as saved.
func (s *Store) CreateTask(ctx context.Context, title string, status Status) (Task, error) {
	if !status.Valid() {
		observeOp("add_task", ErrInvalidStatus)
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var created Task
	err := s.mutate(ctx, "add_task", func(forest []Task, now time.Time) ([]Task, error) {
		id, err := s.uniqueID(forest)
		if err != nil {
			return nil, err
		}
		created = newTask(id, title, status, now)
		return append(forest, created.Clone()), nil
	})
	if err != nil {
		return Task{}, err
	}
	return created, nil
}

// AddSubTask appends a TODO task to the subtasks of parentID, found at any
// depth.
func (s *Store) AddSubTask(ctx context.Context, parentID, title string) (string, error) {
	t, err := s.CreateSubTask(ctx, parentID, title)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// CreateSubTask is AddSubTask returning a copy of the new task as saved. A
// subtask that would sit at depth MaxDepth or deeper is rejected with
// ErrTooDeep.
func (s *Store) CreateSubTask(ctx context.Context, parentID, title string) (Task, error) {
	var created Task
	err := s.mutate(ctx, "add_subtask", func(forest []Task, now time.Time) ([]Task, error) {
		parent, depth := findDepth(forest, parentID, 0)
		if parent == nil {
			return nil, notFound(parentID)
		}
		if depth+1 >= MaxDepth {
			return nil, fmt.Errorf("%w: parent %q is at depth %d", ErrTooDeep, parentID, depth)
		}
		id, err := s.uniqueID(forest)
		if err != nil {
			return nil, err
		}
		created = newTask(id, title, StatusTodo, now)
		parent.Subtasks = append(parent.Subtasks, created.Clone())
		parent.touch(now)
		return forest, nil
	})
	if err != nil {
		return Task{}, err
	}
	return created, nil
}

// UpdateStatus overwrites the status of id. Any transition is allowed.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		observeOp("update_status", ErrInvalidStatus)
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.mutate(ctx, "update_status", func(forest []Task, now time.Time) ([]Task, error) {
		t := Find(forest, id)
		if t == nil {
			return nil, notFound(id)
		}
		t.Status = status
		t.touch(now)
		return forest, nil
	})
}

// AdvanceStatus moves id to the next status in the TODO, IN_PROGRESS, DONE
// cycle and returns it.
func (s *Store) AdvanceStatus(ctx context.Context, id string) (Status, error) {
	var next Status
	err := s.mutate(ctx, "advance_status", func(forest []Task, now time.Time) ([]Task, error) {
		t := Find(forest, id)
		if t == nil {
			return nil, notFound(id)
		}
		next = t.Status.Next()
		t.Status = next
		t.touch(now)
		return forest, nil
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	return s.mutate(ctx, "update_title", func(forest []Task, now time.Time) ([]Task, error) {
		t := Find(forest, id)
		if t == nil {
			return nil, notFound(id)
		}
		t.Title = title
		t.touch(now)
		return forest, nil
	})
}

// DeleteTask removes the first task matching id and its whole subtree.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_task", func(forest []Task, _ time.Time) ([]Task, error) {
		out, ok := Remove(forest, id)
		if !ok {
			return nil, notFound(id)
		}
		return out, nil
	})
}

// Tasks returns a deep copy of the forest.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneForest(s.roots)
}

// Get returns a copy of the task with the given id and its subtree.
func (s *Store) Get(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Find(s.roots, id)
	if t == nil {
		return Task{}, notFound(id)
	}
	return t.Clone(), nil
}

// Len returns the number of tasks at every depth.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Count(s.roots)
}

// CountByStatus counts tasks at every depth. All statuses are present in the
// result, zero or not.
func (s *Store) CountByStatus() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countByStatus(s.roots)
}

func countByStatus(forest []Task) map[Status]int {
	out := make(map[Status]int, len(statusOrder))
	for _, st := range statusOrder {
		out[st] = 0
	}
	Walk(forest, func(t *Task, _ int) bool {
		out[t.Status]++
		return true
	})
	return out
}

// mutate runs fn against a copy of the forest and commits the result after a
// successful save. fn errors leave the forest untouched and skip the save.
func (s *Store) mutate(ctx context.Context, op string, fn func(forest []Task, now time.Time) ([]Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneForest(s.roots), s.now())
	if err == nil {
		err = s.persist(ctx, next)
	}
	observeOp(op, err)
	if err != nil {
		return err
	}

	s.roots = next
	observeForest(s.roots)
	return nil
}

func (s *Store) persist(ctx context.Context, forest []Task) error {
	data, err := Encode(forest)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	return s.save(ctx, data)
}

func (s *Store) save(ctx context.Context, data []byte) error {
	if err := s.blob.Save(ctx, data); err != nil {
		s.logger.Error("store_persist_failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// uniqueID asks the generator for an id not yet present in forest.
func (s *Store) uniqueID(forest []Task) (string, error) {
	const attempts = 8
	for range attempts {
		id := s.newID()
		if id != "" && Find(forest, id) == nil {
			return id, nil
		}
	}
	return "", fmt.Errorf("id generator returned %d used or empty ids in a row", attempts)
}

func newTask(id, title string, status Status, now time.Time) Task {
	return Task{
		ID:        id,
		Title:     title,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
		Subtasks:  []Task{},
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrTooDeep):
		return "too_deep"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	default:
		return "error"
	}
}
