package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gofrs/uuid"
)

type ServerConf struct {
	Port string `env:"PORT" envDefault:"8090"`
}

type Runnable interface {
	Run()
}

// NewServer web server constructor
func NewServer(mgr Manager, cfg ServerConf) (Runnable, error) {
	if cfg.Port == "" {
		return nil, errors.New("server port is required")
	}
	return &server{
		port:    cfg.Port,
		manager: mgr,
	}, nil
}

type updateResponse struct {
	UpdateResults []GameUserUpdateResult `json:"updateResults"`
}

type server struct {
	manager Manager
	port    string
}

// Run function register all server routes and starts the server
func (s *server) Run() {
	Log("Start HTTP server on port %v", s.port)
	if err := http.ListenAndServe(fmt.Sprintf(":%v", s.port), s.routes()); err != nil {
		Log("http server stopped %v", err)
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /games/update", s.updateGameUsersHandler)
	mux.HandleFunc("GET /users/{id}", s.userHandler)
	return mux
}

func (s *server) updateGameUsersHandler(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusInternalServerError)
		return
	}
	batch := GameBatch{}
	if err := json.Unmarshal(body, &batch); err != nil {
		http.Error(w, fmt.Sprintf("Incorrect request body %v", err), http.StatusBadRequest)
		return
	}

	results, err := s.manager.ReconcileBatch(req.Context(), batch)
	switch {
	case errors.Is(err, ErrMalformedBatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrRoundAlreadyReconciled):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, fmt.Sprintf("Failed to proceed game update request %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, updateResponse{UpdateResults: results})
}

func (s *server) userHandler(w http.ResponseWriter, req *http.Request) {
	userID, err := uuid.FromString(req.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	user, err := s.manager.GetUser(req.Context(), userID)
	if errors.Is(err, ErrUserNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load user %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, user)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Log("failed to encode response %v", err)
	}
}
