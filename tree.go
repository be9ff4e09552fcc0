package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/s1natex/tasktree/internal/tasks"
)

var statusMarks = map[tasks.Status]string{
	tasks.StatusTodo:       "[ ]",
	tasks.StatusInProgress: "[~]",
	tasks.StatusDone:       "[x]",
}

// writeTree prints one line per task, indented two spaces per level.
func writeTree(w io.Writer, forest []tasks.Task) error {
	if len(forest) == 0 {
		_, err := fmt.Fprintln(w, "no tasks")
		return err
	}

	var err error
	tasks.Walk(forest, func(t *tasks.Task, depth int) bool {
		_, err = fmt.Fprintf(w, "%s%s %s (%s)\n", strings.Repeat("  ", depth), statusMarks[t.Status], t.Title, t.ID)
		return err == nil
	})
	return err
}
