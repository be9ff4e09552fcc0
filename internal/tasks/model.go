package tasks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// statusOrder is the cycle used by Next.
var statusOrder = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Next returns the status that follows s, wrapping DONE back to TODO.
// Unknown values advance to TODO.
func (s Status) Next() Status {
	for i, st := range statusOrder {
		if st == s {
			return statusOrder[(i+1)%len(statusOrder)]
		}
	}
	return StatusTodo
}

// ParseStatus accepts the wire values case-insensitively.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	return s, nil
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	// absent/empty status is defaulted by Migrate
	if raw == "" {
		*s = ""
		return nil
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Task is a node of the forest. Subtasks are held by value so every node
// has exactly one owner.
//
// A nil Subtasks slice or a zero timestamp marks a field that was absent in
// the persisted data; Migrate fills them in.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Subtasks  []Task    `json:"subtasks"`
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	out := t
	if t.Subtasks != nil {
		out.Subtasks = cloneForest(t.Subtasks)
	}
	return out
}

func (t *Task) touch(now time.Time) {
	t.UpdatedAt = now
}
