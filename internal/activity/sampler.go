package activity

import (
	"log"

	"github.com/actionsum/tasktrack/pkg/window"
)

// FocusSource is the OS collaborator reporting the foreground window.
type FocusSource interface {
	GetFocusedWindow() (*window.WindowInfo, error)
}

// ScreenSource is the OS collaborator returning candidate screen images.
type ScreenSource interface {
	CaptureScreens() ([]window.Screenshot, error)
}

// WindowSnapshot is the per-minute foreground state.
type WindowSnapshot struct {
	Active bool
	Title  *string
}

// WindowSampler queries the foreground window once per minute. Failures
// degrade to an inactive snapshot and are never propagated.
type WindowSampler struct {
	source FocusSource
}

func NewWindowSampler(source FocusSource) *WindowSampler {
	return &WindowSampler{source: source}
}

func (s *WindowSampler) Sample() (snap WindowSnapshot) {
	if s == nil || s.source == nil {
		return WindowSnapshot{}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Window query panicked: %v", r)
			snap = WindowSnapshot{}
		}
	}()

	info, err := s.source.GetFocusedWindow()
	if err != nil || info == nil {
		return WindowSnapshot{}
	}

	snap.Active = true
	if info.WindowTitle != "" {
		title := info.WindowTitle
		snap.Title = &title
	}
	return snap
}

// ScreenshotPicker asks the capture collaborator for candidate images and
// keeps one. Errors and empty results yield nil.
type ScreenshotPicker struct {
	source ScreenSource
}

func NewScreenshotPicker(source ScreenSource) *ScreenshotPicker {
	return &ScreenshotPicker{source: source}
}

func (p *ScreenshotPicker) Capture() (img []byte) {
	if p == nil || p.source == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Screenshot capture panicked: %v", r)
			img = nil
		}
	}()

	shots, err := p.source.CaptureScreens()
	if err != nil {
		log.Printf("Screenshot capture failed: %v", err)
		return nil
	}
	return pick(shots)
}

// pick returns the first non-empty candidate.
func pick(shots []window.Screenshot) []byte {
	for _, s := range shots {
		if len(s.PNG) > 0 {
			return s.PNG
		}
	}
	return nil
}
