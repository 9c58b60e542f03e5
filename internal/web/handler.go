package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/actionsum/tasktrack/internal/activity"
	"github.com/actionsum/tasktrack/internal/config"
	"github.com/actionsum/tasktrack/internal/database"
	"github.com/actionsum/tasktrack/internal/models"
	"github.com/actionsum/tasktrack/internal/reporter"
)

// MaxActivityBody bounds a block submission; screenshots dominate its size.
const MaxActivityBody = 50 << 20

type Handler struct {
	config   *config.Config
	repo     *database.Repository
	reporter *reporter.Reporter
}

func NewHandler(cfg *config.Config, repo *database.Repository) *Handler {
	loc, err := cfg.Location()
	if err != nil {
		log.Printf("Falling back to local time for reports: %v", err)
		loc = time.Local
	}
	return &Handler{
		config:   cfg,
		repo:     repo,
		reporter: reporter.New(repo, loc),
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /projects", h.handleProjects)
	mux.HandleFunc("GET /tasks", h.handleTasks)
	mux.HandleFunc("GET /tasks/{id}", h.handleTask)
	mux.HandleFunc("PATCH /tasks/{id}", h.handleUpdateHours)
	mux.HandleFunc("POST /activity", h.handleActivity)

	mux.HandleFunc("GET /api/activity", h.handleListActivity)
	mux.HandleFunc("GET /api/report", h.handleReport)
	mux.HandleFunc("GET /api/errors", h.handleErrors)

	mux.HandleFunc("GET /health", h.handleHealth)
}

func (h *Handler) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repo.ListProjects()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch projects: %v", err), http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	respondJSON(w, projects)
}

func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(r.URL.Query().Get("projectId"), 10, 64)
	if err != nil || projectID <= 0 {
		http.Error(w, "projectId query parameter is required", http.StatusBadRequest)
		return
	}

	tasks, err := h.repo.ListTasks(projectID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch tasks: %v", err), http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	respondJSON(w, tasks)
}

func (h *Handler) handleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.repo.GetTask(id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch task: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, task)
}

type hoursUpdate struct {
	ActHours *float64 `json:"actHours"`
}

func (h *Handler) handleUpdateHours(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body hoursUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ActHours == nil {
		http.Error(w, "Body must be {\"actHours\": number}", http.StatusBadRequest)
		return
	}
	if *body.ActHours < 0 {
		http.Error(w, "actHours cannot be negative", http.StatusBadRequest)
		return
	}

	err := h.repo.UpdateActualHours(id, *body.ActHours)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to update hours: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"id":       id,
		"actHours": *body.ActHours,
	})
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxActivityBody)

	var rec activity.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, r, 0, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.reject(w, r, 0, http.StatusBadRequest, fmt.Errorf("malformed body: %w", err))
		return
	}

	if err := rec.Validate(); err != nil {
		h.reject(w, r, rec.TaskID, http.StatusBadRequest, err)
		return
	}

	ts, _ := activity.ParseTimestamp(rec.Timestamp)
	entry := &models.ActivityLog{
		ProjectID:          rec.ProjectID,
		TaskID:             rec.TaskID,
		Timestamp:          ts,
		Screenshot:         rec.Screenshot,
		ActivityJSON:       rec.ActivityJSON,
		ActiveMinutes:      rec.ActiveMinutes,
		ActivityPercentage: rec.ActivityPercentage,
	}
	if err := h.repo.CreateActivityLog(entry); err != nil {
		http.Error(w, fmt.Sprintf("Failed to store activity: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("Logged block for task %d at %s: %d active minutes, %d%%",
		rec.TaskID, rec.Timestamp, rec.ActiveMinutes, rec.ActivityPercentage)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"id": entry.ID})
}

// reject answers a refused submission and keeps a trace of it.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, taskID int64, status int, cause error) {
	log.Printf("Rejected %s %s: %v", r.Method, r.URL.Path, cause)

	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Endpoint:  r.URL.Path,
		TaskID:    taskID,
		ErrorMsg:  cause.Error(),
	}
	if err := h.repo.CreateErrorLog(errorLog); err != nil {
		log.Printf("Failed to record rejection: %v", err)
	}

	http.Error(w, cause.Error(), status)
}

func (h *Handler) handleListActivity(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	taskID, _ := strconv.ParseInt(query.Get("taskId"), 10, 64)
	since := time.Now().Add(-24 * time.Hour)
	if s := query.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		since = t
	}

	limit := 100 // default
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		limit = l
	}

	logs, err := h.repo.ListActivityLogs(database.ActivityQuery{
		Since:           since,
		TaskID:          taskID,
		Limit:           limit,
		WithScreenshots: query.Get("screenshots") == "true",
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch activity: %v", err), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*models.ActivityLog{}
	}

	respondJSON(w, logs)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	periodType := query.Get("period")
	if periodType == "" {
		periodType = "day"
	}
	taskID, _ := strconv.ParseInt(query.Get("taskId"), 10, 64)

	report, err := h.reporter.GenerateReport(periodType, taskID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusBadRequest)
		return
	}

	if query.Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(h.reporter.FormatReportText(report)))
		return
	}

	respondJSON(w, report)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	logs, err := h.repo.ListErrorLogs(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch error logs: %v", err), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*models.ErrorLog{}
	}
	respondJSON(w, logs)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}
	if latest, err := h.repo.GetLatestActivityLog(); err != nil {
		log.Printf("Failed to read latest block: %v", err)
	} else if latest != nil {
		resp["lastBlock"] = latest.Timestamp.Format(time.RFC3339)
	}
	respondJSON(w, resp)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
