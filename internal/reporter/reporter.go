package reporter

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/actionsum/tasktrack/internal/activity"
	"github.com/actionsum/tasktrack/internal/models"
	"github.com/actionsum/tasktrack/pkg/utils"
)

// Store is the slice of the repository the reporter reads.
type Store interface {
	GetActivityLogsSince(since time.Time, taskID int64) ([]*models.ActivityLog, error)
	GetTask(id int64) (*models.Task, error)
}

// Reporter handles report generation
type Reporter struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// New creates a new reporter. A nil location means time.Local.
func New(store Store, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.Local
	}
	return &Reporter{
		store: store,
		loc:   loc,
		now:   time.Now,
	}
}

// GenerateReport aggregates delivered blocks for the period. A zero taskID
// covers every task.
func (r *Reporter) GenerateReport(periodType string, taskID int64) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	logs, err := r.store.GetActivityLogsSince(period.Start, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity logs: %w", err)
	}

	tasks := make(map[int64]*models.TaskSummary)
	var order []int64
	apps := make(map[string]int)
	var percentSum int

	report := &models.Report{Period: *period}

	for _, l := range logs {
		if !l.Timestamp.Before(period.End) {
			continue
		}

		minutes, err := activity.DecodeMinutes(l.ActivityJSON)
		if err != nil {
			log.Printf("Skipping activity log %d: %v", l.ID, err)
			continue
		}

		ts, ok := tasks[l.TaskID]
		if !ok {
			ts = &models.TaskSummary{ProjectID: l.ProjectID, TaskID: l.TaskID}
			tasks[l.TaskID] = ts
			order = append(order, l.TaskID)
		}

		recorded := 0
		for _, m := range minutes {
			if m == nil {
				continue
			}
			recorded++
			if m.Active && m.App != nil && *m.App != "" {
				apps[*m.App]++
			}
		}

		ts.Blocks++
		ts.RecordedMinutes += recorded
		ts.ActiveMinutes += l.ActiveMinutes
		ts.MeanActivityPercentage += float64(l.ActivityPercentage)

		report.TotalBlocks++
		report.RecordedMinutes += recorded
		report.ActiveMinutes += l.ActiveMinutes
		percentSum += l.ActivityPercentage
	}

	for _, id := range order {
		ts := tasks[id]
		ts.MeanActivityPercentage /= float64(ts.Blocks)
		ts.TotalHours = float64(ts.RecordedMinutes) / 60.0
		if task, err := r.store.GetTask(id); err == nil {
			ts.TaskName = task.Name
		}
		report.Tasks = append(report.Tasks, *ts)
	}
	sort.SliceStable(report.Tasks, func(i, j int) bool {
		return report.Tasks[i].RecordedMinutes > report.Tasks[j].RecordedMinutes
	})

	report.Apps = summarizeApps(apps)
	if report.TotalBlocks > 0 {
		report.MeanActivityPercentage = float64(percentSum) / float64(report.TotalBlocks)
	}
	report.TotalHours = float64(report.RecordedMinutes) / 60.0
	report.GeneratedAt = r.now()

	return report, nil
}

func summarizeApps(counts map[string]int) []models.AppSummary {
	var total int
	apps := make([]models.AppSummary, 0, len(counts))
	for name, n := range counts {
		apps = append(apps, models.AppSummary{
			AppName:    name,
			Minutes:    n,
			TotalHours: float64(n) / 60.0,
		})
		total += n
	}

	if total > 0 {
		for i := range apps {
			apps[i].Percentage = float64(apps[i].Minutes) / float64(total) * 100.0
		}
	}

	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Minutes != apps[j].Minutes {
			return apps[i].Minutes > apps[j].Minutes
		}
		return apps[i].AppName < apps[j].AppName
	})
	return apps
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.loc)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Activity Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Tracked: %s in %d blocks, %d active minutes, mean activity %.0f%%\n\n",
		utils.FormatHours(report.TotalHours),
		report.TotalBlocks,
		report.ActiveMinutes,
		report.MeanActivityPercentage)

	if report.TotalBlocks == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %8s %8s %8s %9s\n", "Task", "Blocks", "Tracked", "Active", "Activity")
	b.WriteString(strings.Repeat("-", 67) + "\n")
	for _, t := range report.Tasks {
		name := t.TaskName
		if name == "" {
			name = fmt.Sprintf("task #%d", t.TaskID)
		}
		fmt.Fprintf(&b, "%-30s %8d %8s %7dm %8.0f%%\n",
			truncate(name, 30),
			t.Blocks,
			utils.FormatHours(t.TotalHours),
			t.ActiveMinutes,
			t.MeanActivityPercentage)
	}

	if len(report.Apps) > 0 {
		fmt.Fprintf(&b, "\n%-40s %10s %9s\n", "Application", "Time", "Percent")
		b.WriteString(strings.Repeat("-", 61) + "\n")
		for _, app := range report.Apps {
			fmt.Fprintf(&b, "%-40s %10s %8.1f%%\n",
				truncate(app.AppName, 40),
				utils.FormatRoundedUnit(int64(app.Minutes)*60),
				app.Percentage)
		}
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
