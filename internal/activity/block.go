package activity

import (
	"time"

	"github.com/google/uuid"
)

// BlockMinutes is the number of minute records that complete a block.
const BlockMinutes = 10

// MinuteRecord is one sampled minute inside a block
type MinuteRecord struct {
	Keyboard int     `json:"keyboard"`
	Mouse    int     `json:"mouse"`
	Active   bool    `json:"active"`
	App      *string `json:"app"`
}

// Input returns the combined mouse and keyboard events of the minute.
func (m MinuteRecord) Input() int {
	return m.Mouse + m.Keyboard
}

// SessionContext identifies the task a tracking session reports against.
type SessionContext struct {
	ProjectID int64 `json:"projectId"`
	TaskID    int64 `json:"taskId"`

	// BaseActualHours is the task's recorded actual hours when tracking started.
	BaseActualHours float64 `json:"baseActualHours,omitempty"`
}

// Block is a bounded, append-only run of minute records plus an optional
// screenshot. Minutes is indexed by minute slot; nil entries are gaps.
type Block struct {
	ID        string
	ProjectID int64
	TaskID    int64
	StartedAt time.Time
	EndedAt   time.Time

	Minutes    []*MinuteRecord
	Screenshot []byte

	// ScreenshotSlot is the minute index chosen at block start for the capture.
	ScreenshotSlot int

	captured bool
	capture  chan []byte
}

func newBlock(sc SessionContext, slot int, now time.Time) *Block {
	return &Block{
		ID:             uuid.NewString(),
		ProjectID:      sc.ProjectID,
		TaskID:         sc.TaskID,
		StartedAt:      now,
		Minutes:        make([]*MinuteRecord, 0, BlockMinutes),
		ScreenshotSlot: slot,
	}
}

// set stores rec at minute index idx, leaving nil gaps for skipped slots.
func (b *Block) set(idx int, rec MinuteRecord) {
	for len(b.Minutes) <= idx {
		b.Minutes = append(b.Minutes, nil)
	}
	r := rec
	b.Minutes[idx] = &r
}

// Recorded returns the number of minute records present in the block.
func (b *Block) Recorded() int {
	n := 0
	for _, m := range b.Minutes {
		if m != nil {
			n++
		}
	}
	return n
}

// Records returns the non-nil minute records in index order.
func (b *Block) Records() []MinuteRecord {
	out := make([]MinuteRecord, 0, len(b.Minutes))
	for _, m := range b.Minutes {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// HasScreenshot reports whether a screenshot is attached or a capture is in flight.
func (b *Block) HasScreenshot() bool {
	return len(b.Screenshot) > 0 || b.capture != nil
}

// IsEmpty reports whether the block holds nothing worth delivering.
func (b *Block) IsEmpty() bool {
	return b.Recorded() == 0 && !b.HasScreenshot()
}

// resolveScreenshot waits up to timeout for an in-flight capture and attaches
// its result. Only the block's current owner may call it.
func (b *Block) resolveScreenshot(timeout time.Duration) {
	if b.capture == nil {
		return
	}
	ch := b.capture
	b.capture = nil

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case img := <-ch:
		if len(img) > 0 {
			b.Screenshot = img
		}
	case <-timer.C:
	}
}
