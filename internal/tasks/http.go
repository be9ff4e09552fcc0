package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxTitleLen = 200

type createTaskRequest struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

type createSubTaskRequest struct {
	Title string `json:"title"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateTitleRequest struct {
	Title string `json:"title"`
}

type statusResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", listTasks(store))
		r.Post("/", createTask(store))
		r.Get("/stats", taskStats(store))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getTask(store))
			r.Delete("/", deleteTask(store))
			r.Post("/subtasks", createSubTask(store))
			r.Patch("/status", updateStatus(store))
			r.Patch("/title", updateTitle(store))
			r.Post("/advance", advanceStatus(store))
		})
	})
}

func createTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTaskRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		vErrs := validateTitle(req.Title)
		status := StatusTodo
		if req.Status != "" {
			st, err := ParseStatus(req.Status)
			if err != nil {
				vErrs = append(vErrs, statusFieldError())
			}
			status = st
		}
		if len(vErrs) > 0 {
			writeValidation(w, vErrs)
			return
		}

		t, err := store.CreateTask(r.Context(), req.Title, status)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeCreated(w, t)
	}
}

func createSubTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSubTaskRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if vErrs := validateTitle(req.Title); len(vErrs) > 0 {
			writeValidation(w, vErrs)
			return
		}

		t, err := store.CreateSubTask(r.Context(), chi.URLParam(r, "id"), req.Title)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeCreated(w, t)
	}
}

func listTasks(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Tasks())
	}
}

func taskStats(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.CountByStatus())
	}
}

func getTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func updateStatus(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		status, err := ParseStatus(req.Status)
		if err != nil {
			writeValidation(w, []fieldError{statusFieldError()})
			return
		}

		id := chi.URLParam(r, "id")
		if err := store.UpdateStatus(r.Context(), id, status); err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{ID: id, Status: status})
	}
}

func updateTitle(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateTitleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if vErrs := validateTitle(req.Title); len(vErrs) > 0 {
			writeValidation(w, vErrs)
			return
		}

		id := chi.URLParam(r, "id")
		if err := store.UpdateTitle(r.Context(), id, req.Title); err != nil {
			writeStoreError(w, r, err)
			return
		}
		t, err := store.Get(id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func advanceStatus(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		next, err := store.AdvanceStatus(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{ID: id, Status: next})
	}
}

func deleteTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Titles may be empty; only the length is bounded.
func validateTitle(title string) []fieldError {
	if l := len(title); l > maxTitleLen {
		return []fieldError{{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxTitleLen),
		}}
	}
	return nil
}

func statusFieldError() fieldError {
	return fieldError{
		Field:   "status",
		Message: "status must be one of TODO, IN_PROGRESS, DONE",
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return false
	}
	return true
}

func writeCreated(w http.ResponseWriter, t Task) {
	w.Header().Set("Location", "/tasks/"+t.ID)
	writeJSON(w, http.StatusCreated, t)
}

func writeValidation(w http.ResponseWriter, details []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, errResponse{
		Error:   "validation_error",
		Details: details,
	})
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
	case errors.Is(err, ErrInvalidStatus):
		writeValidation(w, []fieldError{statusFieldError()})
	case errors.Is(err, ErrTooDeep):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Error: "max_depth_exceeded"})
	case errors.Is(err, ErrPersistence):
		slog.ErrorContext(r.Context(), "task_persist_error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "persistence_failure"})
	default:
		slog.ErrorContext(r.Context(), "task_unexpected_error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
