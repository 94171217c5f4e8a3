// Package trackertest provides an in-memory stand-in for the tracking
// API, for tests that exercise reconciliation against a live-looking
// server. It implements the endpoints the client uses, including the
// structured validation-error body on bad input.
package trackertest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/partrack/partrack/pkg/types"
)

// Store is the in-memory state behind the test server. Fields may be
// seeded directly before the server starts and inspected after the code
// under test ran.
type Store struct {
	mu     sync.Mutex
	nextID int

	TaskGroups []types.TaskGroup
	Projects   []types.Project
	Events     []types.Event
	People     []types.Person

	// Writes counts mutating requests, for dry-run assertions.
	Writes int
}

// New returns an empty store.
func New() *Store { return &Store{} }

// AddTaskGroup seeds a task group, assigning it an id.
func (s *Store) AddTaskGroup(tg types.TaskGroup) types.TaskGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	tg.ID = s.nextID
	s.TaskGroups = append(s.TaskGroups, tg)
	return tg
}

// AddProject seeds a project, assigning it an id.
func (s *Store) AddProject(p types.Project) types.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.Projects = append(s.Projects, p)
	return p
}

// AddEvent seeds an event on a project, assigning it an id.
func (s *Store) AddEvent(projID int, ev types.Event) types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ev.ID = s.nextID
	ev.ProjectID = projID
	s.Events = append(s.Events, ev)
	return ev
}

// AddPerson seeds a person, assigning them an id.
func (s *Store) AddPerson(p types.Person) types.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.People = append(s.People, p)
	return p
}

// Handler returns the store's HTTP handler.
func (s *Store) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "_session", Value: "test"})
		w.WriteHeader(http.StatusCreated)
	})

	mux.HandleFunc("GET /task_groups", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		search := strings.ToLower(r.URL.Query().Get("search"))
		out := []types.TaskGroup{}
		for _, tg := range s.TaskGroups {
			if search == "" ||
				strings.Contains(strings.ToLower(tg.Name), search) ||
				strings.Contains(strings.ToLower(tg.Abbrev), search) {
				out = append(out, tg)
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("GET /task_groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for _, tg := range s.TaskGroups {
			if tg.ID == id {
				json.NewEncoder(w).Encode(tg)
				return
			}
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("POST /task_groups", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		var tg types.TaskGroup
		if err := json.NewDecoder(r.Body).Decode(&tg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created := s.AddTaskGroup(tg)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	})
	mux.HandleFunc("PATCH /task_groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		s.mu.Lock()
		defer s.mu.Unlock()
		var tg types.TaskGroup
		if err := json.NewDecoder(r.Body).Decode(&tg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := pathID(r, "id")
		for i := range s.TaskGroups {
			if s.TaskGroups[i].ID == id {
				tg.ID = id
				s.TaskGroups[i] = tg
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		s.listProjects(w, r, 0)
	})
	mux.HandleFunc("GET /task_groups/{tg}/projects", func(w http.ResponseWriter, r *http.Request) {
		s.listProjects(w, r, pathID(r, "tg"))
	})
	mux.HandleFunc("GET /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for _, p := range s.Projects {
			if p.ID == id {
				json.NewEncoder(w).Encode(p)
				return
			}
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("POST /task_groups/{tg}/projects", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		var p types.Project
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if p.Title == "" {
			validationError(w, "title", "can't be blank")
			return
		}
		p.TaskGroupID = pathID(r, "tg")
		created := s.AddProject(p)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	})
	mux.HandleFunc("PATCH /task_groups/{tg}/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		s.mu.Lock()
		defer s.mu.Unlock()
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := pathID(r, "id")
		for i := range s.Projects {
			if s.Projects[i].ID == id {
				applyPatch(&s.Projects[i], patch)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /task_groups/{tg}/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		for _, ev := range s.Events {
			if ev.ProjectID == id {
				http.Error(w, "project still has events", http.StatusConflict)
				return
			}
		}
		kept := s.Projects[:0]
		for _, p := range s.Projects {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		s.Projects = kept
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /task_groups/{tg}/projects/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		search := r.URL.Query().Get("search")
		out := []types.Event{}
		for _, ev := range s.Events {
			if ev.ProjectID == id && (search == "" || strings.Contains(ev.Name, search)) {
				out = append(out, ev)
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("POST /task_groups/{tg}/projects/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		var ev types.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created := s.AddEvent(pathID(r, "id"), ev)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	})
	mux.HandleFunc("DELETE /task_groups/{tg}/projects/{pid}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		s.mu.Lock()
		defer s.mu.Unlock()
		id := pathID(r, "id")
		kept := s.Events[:0]
		for _, ev := range s.Events {
			if ev.ID != id {
				kept = append(kept, ev)
			}
		}
		s.Events = kept
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /people", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		search := strings.ToLower(r.URL.Query().Get("search"))
		out := []types.Person{}
		for _, p := range s.People {
			if search == "" || strings.Contains(strings.ToLower(p.LastName), search) {
				out = append(out, p)
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("POST /people", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		var p types.Person
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created := s.AddPerson(p)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	})
	mux.HandleFunc("PATCH /people/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.countWrite()
		s.mu.Lock()
		defer s.mu.Unlock()
		var p types.Person
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := pathID(r, "id")
		for i := range s.People {
			if s.People[i].ID == id {
				p.ID = id
				s.People[i] = p
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func (s *Store) listProjects(w http.ResponseWriter, r *http.Request, tgID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(r.URL.Query().Get("search"))
	out := []types.Project{}
	for _, p := range s.Projects {
		if tgID != 0 && p.TaskGroupID != tgID {
			continue
		}
		if search == "" || strings.Contains(strings.ToLower(p.Designation), search) {
			out = append(out, p)
		}
	}
	json.NewEncoder(w).Encode(out)
}

func (s *Store) countWrite() {
	s.mu.Lock()
	s.Writes++
	s.mu.Unlock()
}

func applyPatch(p *types.Project, patch map[string]any) {
	get := func(key string) (string, bool) {
		v, ok := patch[key].(string)
		return v, ok
	}
	if v, ok := get("title"); ok {
		p.Title = v
	}
	if v, ok := get("project_type"); ok {
		p.ProjectType = types.ProjectType(v)
	}
	if v, ok := get("base"); ok {
		p.Base = v
	}
	if v, ok := get("short_title"); ok {
		p.ShortTitle = v
	}
	if v, ok := get("last_motion"); ok {
		p.LastMotion = v
	}
	if v, ok := get("next_action"); ok {
		p.NextAction = v
	}
	if v, ok := get("award"); ok {
		p.Award = v
	}
	if v, ok := get("par_url"); ok {
		p.PARURL = v
	}
	if v, ok := get("draft_no"); ok {
		p.DraftNo = v
	}
	if v, ok := get("draft_url"); ok {
		p.DraftURL = v
	}
	if v, ok := get("status"); ok {
		p.Status = v
	}
}

func validationError(w http.ResponseWriter, field, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(map[string]any{
		"errors": map[string][]string{field: {message}},
	})
}

func pathID(r *http.Request, key string) int {
	id, _ := strconv.Atoi(r.PathValue(key))
	return id
}
