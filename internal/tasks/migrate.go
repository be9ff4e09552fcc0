package tasks

import "time"

// Migrate upgrades a forest persisted in an older shape to the current one,
// in place, and returns it. A nil forest becomes an empty one.
//
//   - a nil Subtasks slice becomes an empty slice
//   - a zero CreatedAt is set to now
//   - a zero UpdatedAt is set to CreatedAt
//   - an empty Status is set to TODO
//
// Only absent fields are written, so migrating twice equals migrating once.
func Migrate(forest []Task, now time.Time) []Task {
	if forest == nil {
		forest = []Task{}
	}
	for i := range forest {
		migrateTask(&forest[i], now)
	}
	return forest
}

func migrateTask(t *Task, now time.Time) {
	if t.Subtasks == nil {
		t.Subtasks = []Task{}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	for i := range t.Subtasks {
		migrateTask(&t.Subtasks[i], now)
	}
}

// needsMigration reports whether any node still lacks a current-shape field.
func needsMigration(forest []Task) bool {
	found := false
	Walk(forest, func(t *Task, _ int) bool {
		if t.Subtasks == nil || t.CreatedAt.IsZero() || t.UpdatedAt.IsZero() || t.Status == "" {
			found = true
			return false
		}
		return true
	})
	return found
}
