package web

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/actionsum/tasktrack/internal/config"
	"github.com/actionsum/tasktrack/internal/database"
)

// pruneInterval is how often expired blocks are removed while serving.
const pruneInterval = time.Hour

// Server is the persistence backend the tracker delivers blocks to. With a
// retention configured it also removes blocks older than the retention.
type Server struct {
	repo      *database.Repository
	retention time.Duration
	server    *http.Server

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	pruner sync.WaitGroup
}

// NewServer builds the backend on cfg.WebAddr(). Port overrides go through
// cfg.SetWebPort before this is called.
func NewServer(cfg *config.Config, repo *database.Repository) *Server {
	mux := http.NewServeMux()
	NewHandler(cfg, repo).SetupRoutes(mux)

	return &Server{
		repo:      repo,
		retention: cfg.Database.Retention,
		server: &http.Server{
			Addr:         cfg.WebAddr(),
			Handler:      mux,
			ReadTimeout:  60 * time.Second, // screenshots make bodies large
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		stop: make(chan struct{}),
	}
}

// Start serves until Shutdown, pruning expired blocks in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	if s.retention > 0 {
		s.pruner.Add(1)
		go s.pruneLoop()
	}
	s.mu.Unlock()

	log.Printf("Starting backend server on http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the pruner and drains open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.stop)
	}
	s.mu.Unlock()
	s.pruner.Wait()

	log.Println("Shutting down backend server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}

// Prune removes blocks older than the retention, measured from now. It is a
// no-op without a retention.
func (s *Server) Prune(now time.Time) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	n, err := s.repo.DeleteActivityBefore(now.Add(-s.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("Pruned %d blocks older than %v", n, s.retention)
	}
	return n, nil
}

func (s *Server) pruneLoop() {
	defer s.pruner.Done()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		if _, err := s.Prune(time.Now()); err != nil {
			log.Printf("Failed to prune expired blocks: %v", err)
		}
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}
