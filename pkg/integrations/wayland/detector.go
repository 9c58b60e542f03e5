// Package wayland answers focused-window queries on native Wayland
// compositors through their command-line IPC tools. Compositors expose no
// portable screen capture or global input API, so those queries fail and
// the tracker records the minutes as inactive.
package wayland

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/actionsum/tasktrack/pkg/window"
)

// ErrUnsupported is returned for queries the compositor cannot answer.
var ErrUnsupported = errors.New("wayland: not supported by the compositor")

const (
	compositorSway     = "sway"
	compositorHyprland = "hyprland"
	compositorGnome    = "gnome"
)

// Detector implements window.Detector for Wayland
type Detector struct {
	compositor string
	run        func(name string, args ...string) ([]byte, error)
}

// NewDetector detects the running compositor.
func NewDetector() *Detector {
	d := &Detector{run: runCommand}
	d.compositor = detectCompositor()
	return d
}

func runCommand(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

func detectCompositor() string {
	switch {
	case os.Getenv("SWAYSOCK") != "" && commandExists("swaymsg"):
		return compositorSway
	case os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" && commandExists("hyprctl"):
		return compositorHyprland
	case strings.Contains(strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP")), "gnome") && commandExists("gdbus"):
		return compositorGnome
	}
	return ""
}

func (d *Detector) IsAvailable() bool {
	return d.compositor != ""
}

func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

// Compositor names the compositor queries are routed to, or "" when none
// is supported.
func (d *Detector) Compositor() string {
	return d.compositor
}

func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)
	switch d.compositor {
	case compositorSway:
		info, err = d.focusedSway()
	case compositorHyprland:
		info, err = d.focusedHyprland()
	case compositorGnome:
		info, err = d.focusedGnome()
	default:
		return nil, fmt.Errorf("%w: no supported compositor", ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}
	info.DisplayServer = "wayland"
	return info, nil
}

func (d *Detector) CaptureScreens() ([]window.Screenshot, error) {
	return nil, ErrUnsupported
}

func (d *Detector) WatchInput(ctx context.Context, emit func(window.InputKind)) error {
	return ErrUnsupported
}

func (d *Detector) Close() error { return nil }

type swayNode struct {
	Name          string     `json:"name"`
	AppID         string     `json:"app_id"`
	PID           int        `json:"pid"`
	Focused       bool       `json:"focused"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
	WindowProps   struct {
		Class string `json:"class"`
	} `json:"window_properties"`
}

func (d *Detector) focusedSway() (*window.WindowInfo, error) {
	out, err := d.run("swaymsg", "-t", "get_tree")
	if err != nil {
		return nil, fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	return parseSwayTree(out)
}

func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	node := findFocused(&root)
	if node == nil {
		return nil, errors.New("no focused window in sway tree")
	}

	app := node.AppID
	if app == "" {
		app = node.WindowProps.Class
	}
	return newInfo(app, node.Name, node.PID), nil
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused && (n.AppID != "" || n.WindowProps.Class != "" || n.PID != 0) {
		return n
	}
	for i := range n.Nodes {
		if f := findFocused(&n.Nodes[i]); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := findFocused(&n.FloatingNodes[i]); f != nil {
			return f
		}
	}
	return nil
}

func (d *Detector) focusedHyprland() (*window.WindowInfo, error) {
	out, err := d.run("hyprctl", "activewindow", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	return parseHyprlandWindow(out)
}

func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var w struct {
		Class string `json:"class"`
		Title string `json:"title"`
		PID   int    `json:"pid"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}
	if w.Class == "" && w.Title == "" {
		return nil, errors.New("no active window")
	}
	return newInfo(w.Class, w.Title, w.PID), nil
}

const gnomeFocusScript = `(() => {
	const w = global.display.focus_window;
	return w ? (w.get_wm_class() || '') + '\u001f' + (w.get_title() || '') : '';
})()`

func (d *Detector) focusedGnome() (*window.WindowInfo, error) {
	out, err := d.run("gdbus", "call", "--session",
		"--dest", "org.gnome.Shell",
		"--object-path", "/org/gnome/Shell",
		"--method", "org.gnome.Shell.Eval",
		gnomeFocusScript)
	if err != nil {
		return nil, fmt.Errorf("failed to execute gdbus: %w", err)
	}
	return parseGnomeEval(string(out))
}

// parseGnomeEval reads a Shell.Eval reply of the form (true, '"class\x1ftitle"').
// Recent GNOME releases disable Eval and reply (false, '').
func parseGnomeEval(out string) (*window.WindowInfo, error) {
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, "(true,") {
		return nil, fmt.Errorf("%w: org.gnome.Shell.Eval is disabled", ErrUnsupported)
	}

	payload := strings.TrimSuffix(strings.TrimPrefix(out, "(true,"), ")")
	payload = strings.Trim(strings.TrimSpace(payload), "'")
	if unquoted, err := strconv.Unquote(payload); err == nil {
		payload = unquoted
	}

	app, title, ok := strings.Cut(payload, "\x1f")
	if !ok || app == "" {
		return nil, errors.New("no focused window")
	}
	return newInfo(app, title, 0), nil
}

func newInfo(app, title string, pid int) *window.WindowInfo {
	if app == "" {
		app = "Unknown"
	}
	process := app
	if pid > 0 {
		if name := processName(pid); name != "" {
			process = name
		}
	}
	return &window.WindowInfo{
		AppName:     app,
		WindowTitle: title,
		ProcessName: process,
	}
}

func processName(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
