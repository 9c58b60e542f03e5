// Package control is the tracker's local command surface: a small HTTP API
// that drives one tracking session, and the client the CLI uses against it.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/actionsum/tasktrack/internal/activity"
)

// Tracker is the session operations the command surface exposes.
type Tracker interface {
	Start(sc activity.SessionContext) error
	Pause() error
	Resume() error
	Stop() error
	Status() activity.Status
}

// StartRequest selects the task to track.
type StartRequest struct {
	ProjectID       int64   `json:"projectId"`
	TaskID          int64   `json:"taskId"`
	BaseActualHours float64 `json:"baseActualHours"`
}

// Response acknowledges a command. Ignored is set when the command was not
// legal in the session's state; the session is left unchanged.
type Response struct {
	Ignored bool            `json:"ignored"`
	Reason  string          `json:"reason,omitempty"`
	Status  activity.Status `json:"status"`
}

type Server struct {
	tracker  Tracker
	listener net.Listener
	server   *http.Server
}

// NewServer binds the command surface to addr.
func NewServer(addr string, tracker Tracker) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("control: binding listener: %w", err)
	}

	s := &Server{
		tracker:  tracker,
		listener: ln,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/start", s.handleStart)
	mux.HandleFunc("POST /session/pause", s.command(tracker.Pause))
	mux.HandleFunc("POST /session/resume", s.command(tracker.Resume))
	mux.HandleFunc("POST /session/stop", s.command(tracker.Stop))
	mux.HandleFunc("GET /session/status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves requests until Shutdown. Call in a goroutine.
func (s *Server) Start() error {
	log.Printf("Control surface listening on http://%s", s.Addr())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("malformed request: %v", err), http.StatusBadRequest)
		return
	}
	if req.TaskID <= 0 {
		http.Error(w, "taskId is required", http.StatusBadRequest)
		return
	}

	err := s.tracker.Start(activity.SessionContext{
		ProjectID:       req.ProjectID,
		TaskID:          req.TaskID,
		BaseActualHours: req.BaseActualHours,
	})
	s.respond(w, err)
}

func (s *Server) command(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, op())
	}
}

func (s *Server) respond(w http.ResponseWriter, err error) {
	resp := Response{}
	if err != nil {
		if !errors.Is(err, activity.ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Printf("Ignoring command: %v", err)
		resp.Ignored = true
		resp.Reason = err.Error()
	}
	resp.Status = s.tracker.Status()
	writeJSON(w, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.tracker.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("control: encoding response: %v", err)
	}
}
