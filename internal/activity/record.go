package activity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the UTC timestamp format of a delivered block.
const TimestampLayout = "2006-01-02 15:04:05"

const screenshotPrefix = "data:image/png;base64,"

// Record is the payload delivered to the persistence backend for one block.
type Record struct {
	ProjectID          int64   `json:"projectId"`
	TaskID             int64   `json:"taskId"`
	Timestamp          string  `json:"timestamp"`
	Screenshot         *string `json:"screenshot"`
	ActivityJSON       string  `json:"activity_json"`
	ActiveMinutes      int     `json:"active_minutes"`
	ActivityPercentage int     `json:"activity_percentage"`
}

type activityDocument struct {
	Minutes []*MinuteRecord `json:"minutes"`
}

// NewRecord builds the delivery payload of a finalized block.
func NewRecord(b *Block, score ActivityScore) (*Record, error) {
	activityJSON, err := EncodeMinutes(b.Minutes)
	if err != nil {
		return nil, err
	}

	ended := b.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}

	rec := &Record{
		ProjectID:          b.ProjectID,
		TaskID:             b.TaskID,
		Timestamp:          ended.UTC().Format(TimestampLayout),
		ActivityJSON:       activityJSON,
		ActiveMinutes:      score.ActiveMinutes,
		ActivityPercentage: score.ActivityPercentage,
	}
	if len(b.Screenshot) > 0 {
		s := EncodeScreenshot(b.Screenshot)
		rec.Screenshot = &s
	}
	return rec, nil
}

// EncodeMinutes serializes minute records, gaps included, as {"minutes":[...]}.
func EncodeMinutes(minutes []*MinuteRecord) (string, error) {
	if minutes == nil {
		minutes = []*MinuteRecord{}
	}
	data, err := json.Marshal(activityDocument{Minutes: minutes})
	if err != nil {
		return "", fmt.Errorf("failed to encode activity: %w", err)
	}
	return string(data), nil
}

// DecodeMinutes parses an activity document back into indexed minute records.
func DecodeMinutes(s string) ([]*MinuteRecord, error) {
	var doc activityDocument
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}
	if len(doc.Minutes) > BlockMinutes {
		return nil, fmt.Errorf("activity holds %d minutes, at most %d allowed", len(doc.Minutes), BlockMinutes)
	}
	for i, m := range doc.Minutes {
		if m != nil && (m.Mouse < 0 || m.Keyboard < 0) {
			return nil, fmt.Errorf("minute %d has negative input counts", i)
		}
	}
	return doc.Minutes, nil
}

// EncodeScreenshot renders PNG bytes as a data URL.
func EncodeScreenshot(png []byte) string {
	return screenshotPrefix + base64.StdEncoding.EncodeToString(png)
}

// DecodeScreenshot reverses EncodeScreenshot.
func DecodeScreenshot(s string) ([]byte, error) {
	if !strings.HasPrefix(s, screenshotPrefix) {
		return nil, fmt.Errorf("screenshot is not a PNG data URL")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, screenshotPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return data, nil
}

// ParseTimestamp parses a record timestamp as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// Validate checks the field constraints a backend enforces on ingestion.
func (r *Record) Validate() error {
	if r.TaskID <= 0 {
		return fmt.Errorf("task id must be positive, got %d", r.TaskID)
	}
	if r.ActiveMinutes < 0 || r.ActiveMinutes > BlockMinutes {
		return fmt.Errorf("active minutes must be between 0 and %d, got %d", BlockMinutes, r.ActiveMinutes)
	}
	if r.ActivityPercentage < 0 || r.ActivityPercentage > 100 {
		return fmt.Errorf("activity percentage must be between 0 and 100, got %d", r.ActivityPercentage)
	}
	if _, err := ParseTimestamp(r.Timestamp); err != nil {
		return err
	}
	if _, err := DecodeMinutes(r.ActivityJSON); err != nil {
		return err
	}
	if r.Screenshot != nil {
		if _, err := DecodeScreenshot(*r.Screenshot); err != nil {
			return err
		}
	}
	return nil
}
