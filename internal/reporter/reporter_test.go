package reporter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/actionsum/tasktrack/internal/models"
)

type fakeStore struct {
	logs  []*models.ActivityLog
	tasks map[int64]*models.Task
	since time.Time
}

func (f *fakeStore) GetActivityLogsSince(since time.Time, taskID int64) ([]*models.ActivityLog, error) {
	f.since = since
	var out []*models.ActivityLog
	for _, l := range f.logs {
		if !l.Timestamp.Before(since) && (taskID == 0 || l.TaskID == taskID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTask(id int64) (*models.Task, error) {
	if t, ok := f.tasks[id]; ok {
		return t, nil
	}
	return nil, errors.New("not found")
}

const (
	editorMinutes = `{"minutes":[` +
		`{"keyboard":30,"mouse":10,"active":true,"app":"main.go - editor"},` +
		`{"keyboard":20,"mouse":5,"active":true,"app":"main.go - editor"},` +
		`{"keyboard":0,"mouse":0,"active":false,"app":null},` +
		`null,` +
		`{"keyboard":1,"mouse":50,"active":true,"app":"Docs - browser"}]}`
	browserMinutes = `{"minutes":[{"keyboard":0,"mouse":12,"active":true,"app":"Docs - browser"}]}`
)

func newTestReporter(store Store) *Reporter {
	r := New(store, time.UTC)
	r.now = func() time.Time { return time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC) } // Wednesday
	return r
}

func testStore() *fakeStore {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	return &fakeStore{
		logs: []*models.ActivityLog{
			{ID: 1, ProjectID: 1, TaskID: 7, Timestamp: day.Add(9 * time.Hour), ActivityJSON: editorMinutes, ActiveMinutes: 3, ActivityPercentage: 12},
			{ID: 2, ProjectID: 1, TaskID: 8, Timestamp: day.Add(10 * time.Hour), ActivityJSON: browserMinutes, ActiveMinutes: 1, ActivityPercentage: 1},
			{ID: 3, ProjectID: 1, TaskID: 7, Timestamp: day.Add(11 * time.Hour), ActivityJSON: `{"minutes":[]}`, ActiveMinutes: 0, ActivityPercentage: 0},
			{ID: 4, ProjectID: 1, TaskID: 7, Timestamp: day.Add(12 * time.Hour), ActivityJSON: `broken`, ActiveMinutes: 9, ActivityPercentage: 90},
		},
		tasks: map[int64]*models.Task{7: {ID: 7, Name: "Landing page"}},
	}
}

func TestGenerateReportDay(t *testing.T) {
	store := testStore()
	r := newTestReporter(store)

	report, err := r.GenerateReport("day", 0)
	if err != nil {
		t.Fatalf("GenerateReport() error: %v", err)
	}

	if want := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC); !store.since.Equal(want) {
		t.Errorf("queried since %v, want %v", store.since, want)
	}
	if report.TotalBlocks != 3 {
		t.Errorf("TotalBlocks = %d, want 3 (malformed log skipped)", report.TotalBlocks)
	}
	if report.RecordedMinutes != 5 || report.ActiveMinutes != 4 {
		t.Errorf("recorded=%d active=%d, want 5 and 4", report.RecordedMinutes, report.ActiveMinutes)
	}
	if report.MeanActivityPercentage != float64(13)/3 {
		t.Errorf("MeanActivityPercentage = %v", report.MeanActivityPercentage)
	}

	if len(report.Tasks) != 2 {
		t.Fatalf("tasks = %+v", report.Tasks)
	}
	first := report.Tasks[0]
	if first.TaskID != 7 || first.TaskName != "Landing page" || first.Blocks != 2 || first.RecordedMinutes != 4 {
		t.Errorf("first task = %+v", first)
	}
	if first.MeanActivityPercentage != 6 {
		t.Errorf("task 7 mean = %v, want 6", first.MeanActivityPercentage)
	}

	if len(report.Apps) != 2 {
		t.Fatalf("apps = %+v", report.Apps)
	}
	for _, app := range report.Apps {
		if app.Minutes != 2 || app.Percentage != 50 {
			t.Errorf("app %+v, want 2 minutes at 50%%", app)
		}
	}
	if report.Apps[0].AppName != "Docs - browser" {
		t.Errorf("apps not ordered by name on ties: %+v", report.Apps)
	}
}

func TestGenerateReportTaskFilter(t *testing.T) {
	r := newTestReporter(testStore())

	report, err := r.GenerateReport("week", 8)
	if err != nil {
		t.Fatalf("GenerateReport() error: %v", err)
	}
	if report.TotalBlocks != 1 || len(report.Tasks) != 1 || report.Tasks[0].TaskName != "" {
		t.Errorf("report = %+v", report)
	}
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !report.Period.Start.Equal(want) {
		t.Errorf("week starts %v, want Monday %v", report.Period.Start, want)
	}
}

func TestGetPeriodInvalid(t *testing.T) {
	r := newTestReporter(testStore())
	if _, err := r.GenerateReport("year", 0); err == nil {
		t.Error("GenerateReport(year) succeeded, want error")
	}
}

func TestFormatReportText(t *testing.T) {
	r := newTestReporter(testStore())
	report, _ := r.GenerateReport("month", 0)

	text := r.FormatReportText(report)
	for _, want := range []string{"Activity Report - month", "Landing page", "task #8", "Docs - browser", "3 blocks"} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}

	emptyReport, err := newTestReporter(&fakeStore{}).GenerateReport("day", 0)
	if err != nil {
		t.Fatalf("GenerateReport() error: %v", err)
	}
	if empty := r.FormatReportText(emptyReport); !strings.Contains(empty, "No activity recorded") {
		t.Errorf("empty report = %q", empty)
	}
}

func TestFormatReportJSON(t *testing.T) {
	r := newTestReporter(testStore())
	report, _ := r.GenerateReport("day", 0)

	out, err := r.FormatReportJSON(report)
	if err != nil {
		t.Fatalf("FormatReportJSON() error: %v", err)
	}
	if !strings.Contains(out, `"total_blocks": 3`) {
		t.Errorf("JSON report = %s", out)
	}
}
