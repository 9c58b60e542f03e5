package wayland

import (
	"context"
	"errors"
	"testing"
)

const swayTree = `{
  "name": "root", "focused": false,
  "nodes": [{
    "name": "eDP-1", "focused": false,
    "nodes": [{
      "name": "1", "focused": false,
      "nodes": [
        {"name": "notes.md - editor", "app_id": "code", "pid": 0, "focused": false, "nodes": []},
        {"name": "Inbox - Mail", "app_id": "", "pid": 0, "focused": true,
         "window_properties": {"class": "Thunderbird"}, "nodes": []}
      ]
    }]
  }]
}`

func TestParseSwayTree(t *testing.T) {
	info, err := parseSwayTree([]byte(swayTree))
	if err != nil {
		t.Fatalf("parseSwayTree() error: %v", err)
	}
	if info.AppName != "Thunderbird" || info.WindowTitle != "Inbox - Mail" {
		t.Errorf("parseSwayTree() = %+v, want Thunderbird / Inbox - Mail", info)
	}
	if info.ProcessName != "Thunderbird" {
		t.Errorf("ProcessName = %s, want app name without a pid", info.ProcessName)
	}
}

func TestParseSwayTreeNoFocus(t *testing.T) {
	if _, err := parseSwayTree([]byte(`{"name":"root","focused":true,"nodes":[]}`)); err == nil {
		t.Error("parseSwayTree() succeeded with only the root focused")
	}
	if _, err := parseSwayTree([]byte(`not json`)); err == nil {
		t.Error("parseSwayTree() succeeded on invalid input")
	}
}

func TestParseHyprlandWindow(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		app     string
		title   string
		wantErr bool
	}{
		{"active window", `{"class":"firefox","title":"Docs","pid":0}`, "firefox", "Docs", false},
		{"no class", `{"class":"","title":"Untitled","pid":0}`, "Unknown", "Untitled", false},
		{"empty workspace", `{}`, "", "", true},
		{"garbage", `Invalid`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseHyprlandWindow([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseHyprlandWindow() = %+v, want error", info)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHyprlandWindow() error: %v", err)
			}
			if info.AppName != tt.app || info.WindowTitle != tt.title {
				t.Errorf("parseHyprlandWindow() = %+v, want %s / %s", info, tt.app, tt.title)
			}
		})
	}
}

func TestParseGnomeEval(t *testing.T) {
	info, err := parseGnomeEval(`(true, '"org.gnome.Terminal\u001f~/src"')` + "\n")
	if err != nil {
		t.Fatalf("parseGnomeEval() error: %v", err)
	}
	if info.AppName != "org.gnome.Terminal" || info.WindowTitle != "~/src" {
		t.Errorf("parseGnomeEval() = %+v", info)
	}

	if _, err := parseGnomeEval(`(false, '')`); !errors.Is(err, ErrUnsupported) {
		t.Errorf("parseGnomeEval(disabled) = %v, want ErrUnsupported", err)
	}
	if _, err := parseGnomeEval(`(true, '""')`); err == nil {
		t.Error("parseGnomeEval() succeeded without a focused window")
	}
}

func TestGetFocusedWindowRoutesToCompositor(t *testing.T) {
	var called []string
	d := &Detector{
		compositor: compositorHyprland,
		run: func(name string, args ...string) ([]byte, error) {
			called = append(called, name)
			return []byte(`{"class":"kitty","title":"vim","pid":0}`), nil
		},
	}

	info, err := d.GetFocusedWindow()
	if err != nil {
		t.Fatalf("GetFocusedWindow() error: %v", err)
	}
	if info.DisplayServer != "wayland" || info.AppName != "kitty" {
		t.Errorf("GetFocusedWindow() = %+v", info)
	}
	if len(called) != 1 || called[0] != "hyprctl" {
		t.Errorf("ran %v, want hyprctl", called)
	}
}

func TestUnsupportedQueries(t *testing.T) {
	d := &Detector{}
	if d.IsAvailable() {
		t.Error("IsAvailable() = true without a compositor")
	}
	if _, err := d.GetFocusedWindow(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("GetFocusedWindow() = %v, want ErrUnsupported", err)
	}
	if _, err := d.CaptureScreens(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("CaptureScreens() = %v, want ErrUnsupported", err)
	}
	if err := d.WatchInput(context.Background(), nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("WatchInput() = %v, want ErrUnsupported", err)
	}
}
