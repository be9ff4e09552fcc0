package tasks

import "slices"

// MaxDepth bounds nesting: roots are at depth 0 and no task may sit at depth
// MaxDepth or below. Each level costs two levels of JSON nesting (the task
// object and its subtasks array), which keeps an encoded forest well inside
// the encoding/json decoder limit of 10000.
const MaxDepth = 4096

// Find performs a depth-first pre-order search and returns a pointer to the
// first node with the given id. The pointer aliases the forest; callers may
// mutate through it but must not retain it across structural changes.
func Find(forest []Task, id string) *Task {
	for i := range forest {
		if forest[i].ID == id {
			return &forest[i]
		}
		if t := Find(forest[i].Subtasks, id); t != nil {
			return t
		}
	}
	return nil
}

// findDepth is Find that also reports the depth of the match.
func findDepth(forest []Task, id string, depth int) (*Task, int) {
	for i := range forest {
		if forest[i].ID == id {
			return &forest[i], depth
		}
		if t, d := findDepth(forest[i].Subtasks, id, depth+1); t != nil {
			return t, d
		}
	}
	return nil, 0
}

// Remove deletes the first node (pre-order) whose id matches, together with
// its subtree. It reports whether a node was removed.
func Remove(forest []Task, id string) ([]Task, bool) {
	for i := range forest {
		if forest[i].ID == id {
			return slices.Delete(forest, i, i+1), true
		}
		if sub, ok := Remove(forest[i].Subtasks, id); ok {
			forest[i].Subtasks = sub
			return forest, true
		}
	}
	return forest, false
}

// Walk visits every node in pre-order. depth is 0 for roots. Returning false
// from fn stops the walk.
func Walk(forest []Task, fn func(t *Task, depth int) bool) {
	walk(forest, 0, fn)
}

func walk(forest []Task, depth int, fn func(*Task, int) bool) bool {
	for i := range forest {
		if !fn(&forest[i], depth) {
			return false
		}
		if !walk(forest[i].Subtasks, depth+1, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the forest, at every depth.
func Count(forest []Task) int {
	n := 0
	for i := range forest {
		n += 1 + Count(forest[i].Subtasks)
	}
	return n
}

func cloneForest(forest []Task) []Task {
	if forest == nil {
		return nil
	}
	out := make([]Task, len(forest))
	for i := range forest {
		out[i] = forest[i].Clone()
	}
	return out
}

// duplicateID reports the first id that appears more than once. An empty id
// is reported as ("", true). ok is false when the forest is well formed.
func duplicateID(forest []Task) (id string, ok bool) {
	seen := make(map[string]struct{})
	Walk(forest, func(t *Task, _ int) bool {
		if t.ID == "" {
			id, ok = "", true
			return false
		}
		if _, dup := seen[t.ID]; dup {
			id, ok = t.ID, true
			return false
		}
		seen[t.ID] = struct{}{}
		return true
	})
	return id, ok
}
