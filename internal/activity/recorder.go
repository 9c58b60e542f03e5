package activity

import (
	"math/rand"
	"time"
)

// Recorder owns the current block: it appends minute records, picks the
// block's screenshot slot and launches the single capture attempt. It holds
// no lock of its own; Session serializes every call.
type Recorder struct {
	sampler *WindowSampler
	picker  *ScreenshotPicker
	intn    func(n int) int

	block *Block
	next  int
}

// NewRecorder builds a Recorder. intn picks the screenshot slot in [0,n);
// nil uses math/rand.
func NewRecorder(sampler *WindowSampler, picker *ScreenshotPicker, intn func(n int) int) *Recorder {
	if intn == nil {
		intn = rand.Intn
	}
	return &Recorder{
		sampler: sampler,
		picker:  picker,
		intn:    intn,
	}
}

// Begin replaces the current block with a fresh one and a new random
// screenshot slot.
func (r *Recorder) Begin(sc SessionContext, now time.Time) *Block {
	slot := r.intn(BlockMinutes)
	if slot < 0 || slot >= BlockMinutes {
		slot = 0
	}
	r.block = newBlock(sc, slot, now)
	r.next = 0
	return r.block
}

// Current returns the block being recorded, or nil.
func (r *Recorder) Current() *Block {
	return r.block
}

// MinuteIndex returns the index the next minute record will take.
func (r *Recorder) MinuteIndex() int {
	return r.next
}

// SampleWindow queries the foreground window. It may block and must be called
// without the session lock held.
func (r *Recorder) SampleWindow() WindowSnapshot {
	return r.sampler.Sample()
}

// Append stores one minute at the current index, fires the screenshot capture
// when the index hits the block's slot, and advances. full is true once the
// block holds BlockMinutes records.
func (r *Recorder) Append(counts MinuteCounts, snap WindowSnapshot) (idx int, full bool) {
	b := r.block
	idx = r.next
	b.set(idx, MinuteRecord{
		Keyboard: counts.Keyboard,
		Mouse:    counts.Mouse,
		Active:   snap.Active,
		App:      snap.Title,
	})

	if idx == b.ScreenshotSlot {
		r.capture(b)
	}

	r.next++
	return idx, r.next >= BlockMinutes
}

// capture starts the block's only screenshot attempt. The result travels over
// a buffered channel so the goroutine never touches the block itself.
func (r *Recorder) capture(b *Block) {
	if b.captured {
		return
	}
	b.captured = true

	ch := make(chan []byte, 1)
	b.capture = ch
	picker := r.picker
	go func() {
		ch <- picker.Capture()
	}()
}

// Detach hands the current block off and leaves the recorder empty.
func (r *Recorder) Detach(now time.Time) *Block {
	b := r.block
	r.block = nil
	r.next = 0
	if b != nil {
		b.EndedAt = now
	}
	return b
}
