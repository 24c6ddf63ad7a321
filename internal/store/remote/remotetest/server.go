// Package remotetest runs an in-memory todo API for tests.
package remotetest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/idilsaglam/todoclient/internal/model"
)

// Request is one call the server received.
type Request struct {
	Method string
	Path   string
	Body   string
	Status int
}

// Server is a fake of the todo API backed by a slice.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	todos    []model.Todo
	nextID   int
	failures map[string]int
	requests []Request
	idField  string
}

// New starts a server seeded with todos and closes it when t finishes.
func New(t testing.TB, seed ...model.Todo) *Server {
	t.Helper()
	s := &Server{
		todos:    append([]model.Todo(nil), seed...),
		nextID:   len(seed) + 1,
		failures: map[string]int{},
		idField:  "id",
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.Methods(http.MethodGet).Path("/todos/").HandlerFunc(s.list)
	r.Methods(http.MethodPost).Path("/todos/").HandlerFunc(s.create)
	r.Methods(http.MethodPut).Path("/todos/{id}").HandlerFunc(s.update)
	r.Methods(http.MethodDelete).Path("/todos/{id}").HandlerFunc(s.remove)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Fail makes every later call to op ("list", "create", "update", "delete")
// answer with status until Recover is called.
func (s *Server) Fail(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = status
}

// UseMongoIDs makes responses carry ids under "_id", like the reference backend.
func (s *Server) UseMongoIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idField = "_id"
}

// Recover clears an injected failure.
func (s *Server) Recover(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// Todos returns a copy of the stored todos.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo(nil), s.todos...)
}

// Requests returns every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests used method.
func (s *Server) Count(method string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Body:   string(body),
			Status: m.Code,
		})
		s.mu.Unlock()
	})
}

func (s *Server) failure(op string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.failures[op]
	return status, ok
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failure("list"); ok {
		http.Error(w, `{"detail":"boom"}`, status)
		return
	}
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.todos))
	for _, t := range s.todos {
		out = append(out, s.encode(t))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failure("create"); ok {
		http.Error(w, `{"detail":"boom"}`, status)
		return
	}
	var in struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		http.Error(w, `{"detail":"invalid"}`, http.StatusUnprocessableEntity)
		return
	}
	s.mu.Lock()
	t := model.Todo{
		ID:          strconv.Itoa(s.nextID),
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
	}
	s.nextID++
	s.todos = append(s.todos, t)
	out := s.encode(t)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failure("update"); ok {
		http.Error(w, `{"detail":"boom"}`, status)
		return
	}
	var in struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Completed   *bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"detail":"invalid"}`, http.StatusUnprocessableEntity)
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		if s.todos[i].ID != id {
			continue
		}
		if in.Title != nil {
			s.todos[i].Title = *in.Title
		}
		if in.Description != nil {
			s.todos[i].Description = *in.Description
		}
		if in.Completed != nil {
			s.todos[i].Completed = *in.Completed
		}
		writeJSON(w, http.StatusOK, s.encode(s.todos[i]))
		return
	}
	http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failure("delete"); ok {
		http.Error(w, `{"detail":"boom"}`, status)
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
}

// encode mirrors the backend, which always sends description (null when unset).
func (s *Server) encode(t model.Todo) map[string]any {
	var desc any
	if t.Description != "" {
		desc = t.Description
	}
	return map[string]any{
		s.idField:     t.ID,
		"title":       t.Title,
		"description": desc,
		"completed":   t.Completed,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
