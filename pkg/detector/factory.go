package detector

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/actionsum/tasktrack/pkg/integrations/wayland"
	"github.com/actionsum/tasktrack/pkg/integrations/x11"
	"github.com/actionsum/tasktrack/pkg/window"
)

// New returns the X11 detector when an X display (native or XWayland) is
// reachable, the focus-only Wayland detector on a supported compositor, and
// an Unavailable detector otherwise.
func New(pollInterval time.Duration) window.Detector {
	server := DetectDisplayServer()
	if os.Getenv("DISPLAY") != "" {
		det := x11.NewDetector(pollInterval)
		if det.IsAvailable() {
			return det
		}
	}
	if server == "wayland" {
		det := wayland.NewDetector()
		if det.IsAvailable() {
			log.Printf("No X display; using %s focus queries (screenshots and input are disabled)", det.Compositor())
			return det
		}
	}
	log.Printf("No X display available (session: %s); window, screenshot and input queries are disabled", server)
	return &Unavailable{server: server}
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}

// Unavailable is the detector used when no supported display server is
// reachable. Every query fails, which the tracker treats as inactivity.
type Unavailable struct {
	server string
}

var errUnavailable = fmt.Errorf("no supported display server")

func (u *Unavailable) GetFocusedWindow() (*window.WindowInfo, error) {
	return nil, errUnavailable
}

func (u *Unavailable) CaptureScreens() ([]window.Screenshot, error) {
	return nil, errUnavailable
}

func (u *Unavailable) WatchInput(ctx context.Context, emit func(window.InputKind)) error {
	return errUnavailable
}

func (u *Unavailable) IsAvailable() bool { return false }

func (u *Unavailable) GetDisplayServer() string {
	if u.server == "" {
		return "none"
	}
	return u.server
}

func (u *Unavailable) Close() error { return nil }
