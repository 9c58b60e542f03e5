package database

import (
	"time"

	"github.com/actionsum/tasktrack/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("record not found")

// Repository handles all database operations for projects, tasks and
// delivered activity
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateProject inserts a new project
func (r *Repository) CreateProject(project *models.Project) error {
	if result := r.db.Create(project); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert project")
	}
	return nil
}

// ListProjects returns all projects ordered by id
func (r *Repository) ListProjects() ([]*models.Project, error) {
	var projects []*models.Project
	if result := r.db.Order("id ASC").Find(&projects); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query projects")
	}
	return projects, nil
}

// CreateTask inserts a new task
func (r *Repository) CreateTask(task *models.Task) error {
	if result := r.db.Create(task); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert task")
	}
	return nil
}

// ListTasks returns the tasks of a project ordered by id
func (r *Repository) ListTasks(projectID int64) ([]*models.Task, error) {
	var tasks []*models.Task
	result := r.db.Where("project_id = ?", projectID).Order("id ASC").Find(&tasks)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query tasks")
	}
	return tasks, nil
}

// GetTask retrieves a task by its ID
func (r *Repository) GetTask(id int64) (*models.Task, error) {
	var task models.Task
	result := r.db.First(&task, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get task")
	}
	return &task, nil
}

// UpdateActualHours overwrites a task's cumulative actual hours
func (r *Repository) UpdateActualHours(taskID int64, hours float64) error {
	result := r.db.Model(&models.Task{}).Where("id = ?", taskID).Update("act_hours", hours)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update actual hours")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateActivityLog inserts a delivered block
func (r *Repository) CreateActivityLog(log *models.ActivityLog) error {
	log.Timestamp = log.Timestamp.UTC()
	if result := r.db.Create(log); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert activity log")
	}
	return nil
}

// ActivityQuery selects stored blocks for listing. A zero TaskID matches
// every task and a non-positive Limit returns every match.
type ActivityQuery struct {
	Since           time.Time
	TaskID          int64
	Limit           int
	WithScreenshots bool
}

// GetActivityLogsSince returns blocks with a timestamp at or after since,
// oldest first, without their screenshots. A zero taskID matches every task.
func (r *Repository) GetActivityLogsSince(since time.Time, taskID int64) ([]*models.ActivityLog, error) {
	return r.ListActivityLogs(ActivityQuery{Since: since, TaskID: taskID})
}

// ListActivityLogs returns the newest q.Limit blocks matching q, oldest
// first. Screenshots are only read from disk when q asks for them.
func (r *Repository) ListActivityLogs(q ActivityQuery) ([]*models.ActivityLog, error) {
	var logs []*models.ActivityLog
	// timestamps are stored in UTC and sqlite compares them as text
	query := r.db.Where("timestamp >= ?", q.Since.UTC())
	if q.TaskID != 0 {
		query = query.Where("task_id = ?", q.TaskID)
	}
	if !q.WithScreenshots {
		query = query.Omit("screenshot")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	if result := query.Order("timestamp DESC").Find(&logs); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query activity logs")
	}

	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// GetLatestActivityLog retrieves the most recent block without its
// screenshot, or nil when none exist
func (r *Repository) GetLatestActivityLog() (*models.ActivityLog, error) {
	var log models.ActivityLog
	result := r.db.Omit("screenshot").Order("timestamp DESC").First(&log)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest activity log")
	}
	return &log, nil
}

// DeleteActivityBefore permanently removes blocks older than before so their
// screenshots stop taking space
func (r *Repository) DeleteActivityBefore(before time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", before.UTC()).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old activity")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// ListErrorLogs returns the most recent error logs, newest first
func (r *Repository) ListErrorLogs(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	if result := r.db.Order("id DESC").Limit(limit).Find(&logs); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// ClearActivity removes all activity logs from the database and returns how
// many were removed
func (r *Repository) ClearActivity() (int64, error) {
	result := r.db.Exec("DELETE FROM activity_logs")
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to clear activity logs")
	}
	return result.RowsAffected, nil
}
