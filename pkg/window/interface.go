package window

import "context"

// WindowInfo represents information about the currently focused window
type WindowInfo struct {
	AppName       string
	WindowTitle   string
	ProcessName   string
	DisplayServer string // "x11" or "none"
}

// Screenshot is one captured screen, PNG-encoded
type Screenshot struct {
	Screen int
	Width  int
	Height int
	PNG    []byte
}

// InputKind identifies a raw input event
type InputKind int

const (
	KeyboardInput InputKind = iota
	MouseInput
)

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused window
	GetFocusedWindow() (*WindowInfo, error)

	// CaptureScreens returns zero or more candidate screen images
	CaptureScreens() ([]Screenshot, error)

	// WatchInput reports raw input events to emit until ctx is done
	WatchInput(ctx context.Context, emit func(InputKind)) error

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}
