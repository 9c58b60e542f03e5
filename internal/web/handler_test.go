package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/actionsum/tasktrack/internal/activity"
	"github.com/actionsum/tasktrack/internal/config"
	"github.com/actionsum/tasktrack/internal/database"
	"github.com/actionsum/tasktrack/internal/models"
)

type fixture struct {
	repo    *database.Repository
	server  *httptest.Server
	project *models.Project
	task    *models.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	repo := database.NewRepository(db)

	f := &fixture{repo: repo}
	f.project = &models.Project{Name: "Website"}
	repo.CreateProject(f.project)
	f.task = &models.Task{ProjectID: f.project.ID, Name: "Landing page", EstHours: 3}
	repo.CreateTask(f.task)

	cfg := config.Default()
	cfg.Report.TimeZone = "UTC"
	mux := http.NewServeMux()
	NewHandler(cfg, repo).SetupRoutes(mux)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req, _ := http.NewRequest(method, f.server.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func validRecord(taskID int64) activity.Record {
	shot := activity.EncodeScreenshot([]byte{0x89, 'P', 'N', 'G'})
	return activity.Record{
		ProjectID:          1,
		TaskID:             taskID,
		Timestamp:          time.Now().UTC().Format(activity.TimestampLayout),
		Screenshot:         &shot,
		ActivityJSON:       `{"minutes":[{"keyboard":3,"mouse":4,"active":true,"app":"editor"}]}`,
		ActiveMinutes:      1,
		ActivityPercentage: 1,
	}
}

func TestProjectsAndTasksEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/projects", nil)
	var projects []models.Project
	json.NewDecoder(resp.Body).Decode(&projects)
	if resp.StatusCode != http.StatusOK || len(projects) != 1 || projects[0].Name != "Website" {
		t.Errorf("GET /projects = %d %+v", resp.StatusCode, projects)
	}

	resp = f.do(t, http.MethodGet, "/tasks?projectId=1", nil)
	var tasks []models.Task
	json.NewDecoder(resp.Body).Decode(&tasks)
	if len(tasks) != 1 || tasks[0].Name != "Landing page" || tasks[0].EstHours != 3 {
		t.Errorf("GET /tasks = %+v", tasks)
	}

	if resp := f.do(t, http.MethodGet, "/tasks", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("GET /tasks without projectId = %d, want 400", resp.StatusCode)
	}
}

func TestUpdateHours(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"valid", "/tasks/1", map[string]float64{"actHours": 2.5}, http.StatusOK},
		{"missing field", "/tasks/1", map[string]float64{"hours": 1}, http.StatusBadRequest},
		{"negative", "/tasks/1", map[string]float64{"actHours": -1}, http.StatusBadRequest},
		{"unknown task", "/tasks/42", map[string]float64{"actHours": 1}, http.StatusNotFound},
		{"bad id", "/tasks/abc", map[string]float64{"actHours": 1}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := f.do(t, http.MethodPatch, tt.path, tt.body); resp.StatusCode != tt.status {
				t.Errorf("PATCH %s = %d, want %d", tt.path, resp.StatusCode, tt.status)
			}
		})
	}

	task, _ := f.repo.GetTask(1)
	if task.ActHours != 2.5 {
		t.Errorf("ActHours = %v, want 2.5", task.ActHours)
	}
}

func TestSubmitActivity(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/activity", validRecord(f.task.ID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /activity = %d, want 201", resp.StatusCode)
	}

	logs, err := f.repo.ListActivityLogs(database.ActivityQuery{
		Since:           time.Now().Add(-time.Hour),
		TaskID:          f.task.ID,
		WithScreenshots: true,
	})
	if err != nil || len(logs) != 1 {
		t.Fatalf("stored logs = %v, %v", logs, err)
	}
	if logs[0].Screenshot == nil || !strings.HasPrefix(*logs[0].Screenshot, "data:image/png;base64,") {
		t.Errorf("stored screenshot = %v", logs[0].Screenshot)
	}
	if logs[0].ActiveMinutes != 1 {
		t.Errorf("ActiveMinutes = %d, want 1", logs[0].ActiveMinutes)
	}
}

func TestSubmitActivityRejected(t *testing.T) {
	f := newFixture(t)

	tooActive := validRecord(f.task.ID)
	tooActive.ActiveMinutes = 11
	badTime := validRecord(f.task.ID)
	badTime.Timestamp = "yesterday"

	tests := []struct {
		name string
		body interface{}
	}{
		{"malformed json", `{"taskId":`},
		{"active minutes out of range", tooActive},
		{"bad timestamp", badTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := f.do(t, http.MethodPost, "/activity", tt.body); resp.StatusCode != http.StatusBadRequest {
				t.Errorf("POST /activity = %d, want 400", resp.StatusCode)
			}
		})
	}

	errs, err := f.repo.ListErrorLogs(10)
	if err != nil || len(errs) != len(tests) {
		t.Errorf("error logs = %d, %v, want %d", len(errs), err, len(tests))
	}
	if latest, _ := f.repo.GetLatestActivityLog(); latest != nil {
		t.Errorf("rejected block was stored: %+v", latest)
	}
}

func TestListActivityAndReport(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/activity", validRecord(f.task.ID))

	resp := f.do(t, http.MethodGet, "/api/activity", nil)
	var logs []models.ActivityLog
	json.NewDecoder(resp.Body).Decode(&logs)
	if len(logs) != 1 || logs[0].Screenshot != nil {
		t.Errorf("GET /api/activity = %+v, want one log without screenshot", logs)
	}

	resp = f.do(t, http.MethodGet, "/api/report?period=day", nil)
	var report models.Report
	json.NewDecoder(resp.Body).Decode(&report)
	if report.TotalBlocks != 1 || len(report.Tasks) != 1 || report.Tasks[0].TaskName != "Landing page" {
		t.Errorf("GET /api/report = %+v", report)
	}

	if resp := f.do(t, http.MethodGet, "/api/report?period=decade", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid period = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if _, ok := body["lastBlock"]; ok {
		t.Errorf("lastBlock reported with no stored blocks: %v", body)
	}

	f.do(t, http.MethodPost, "/activity", validRecord(f.task.ID))
	resp = f.do(t, http.MethodGet, "/health", nil)
	body = nil
	json.NewDecoder(resp.Body).Decode(&body)
	if body["lastBlock"] == "" {
		t.Errorf("GET /health = %v, want lastBlock", body)
	}
}

func TestListActivityLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.do(t, http.MethodPost, "/activity", validRecord(f.task.ID))
	}

	resp := f.do(t, http.MethodGet, "/api/activity?limit=2&screenshots=true", nil)
	var logs []models.ActivityLog
	json.NewDecoder(resp.Body).Decode(&logs)
	if len(logs) != 2 {
		t.Fatalf("GET /api/activity?limit=2 = %d logs, want 2", len(logs))
	}
	for _, l := range logs {
		if l.Screenshot == nil {
			t.Errorf("log %d has no screenshot with screenshots=true", l.ID)
		}
	}
}
