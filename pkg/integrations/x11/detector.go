package x11

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math/bits"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/actionsum/tasktrack/pkg/window"
)

const displayServer = "x11"

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

const buttonMask = xproto.KeyButMaskButton1 | xproto.KeyButMaskButton2 |
	xproto.KeyButMaskButton3 | xproto.KeyButMaskButton4 | xproto.KeyButMaskButton5

// Detector implements window.Detector on a native X11 connection
type Detector struct {
	pollInterval time.Duration

	mu    sync.Mutex
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewDetector creates a new X11 detector. The connection is opened on first use.
func NewDetector(pollInterval time.Duration) *Detector {
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &Detector{
		pollInterval: pollInterval,
		atoms:        make(map[string]xproto.Atom),
	}
}

// IsAvailable checks if an X display is configured and reachable
func (d *Detector) IsAvailable() bool {
	if os.Getenv("DISPLAY") == "" {
		return false
	}
	_, err := d.connection()
	return err == nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return displayServer
}

func (d *Detector) connection() (*xgb.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return d.conn, nil
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		d.atoms[name] = reply.Atom
	}

	d.conn = conn
	d.root = xproto.Setup(conn).DefaultScreen(conn).Root
	return conn, nil
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	conn, err := d.connection()
	if err != nil {
		return nil, err
	}

	win, err := d.activeWindow(conn)
	if err != nil {
		return nil, err
	}

	instance, class := d.windowClass(conn, win)
	appName := instance
	if appName == "" {
		appName = class
	}
	if appName == "" {
		appName = "Unknown"
	}

	return &window.WindowInfo{
		AppName:       appName,
		WindowTitle:   d.windowName(conn, win),
		ProcessName:   class,
		DisplayServer: displayServer,
	}, nil
}

func (d *Detector) property(conn *xgb.Conn, win xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (d *Detector) activeWindow(conn *xgb.Conn) (xproto.Window, error) {
	data, err := d.property(conn, d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err == nil && len(data) >= 4 {
		if win := xproto.Window(binary.LittleEndian.Uint32(data)); win != 0 {
			return win, nil
		}
	}

	focus, err := xproto.GetInputFocus(conn).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get input focus: %w", err)
	}
	if focus.Focus == 0 || focus.Focus == d.root {
		return 0, fmt.Errorf("no active window found")
	}
	return d.topLevel(conn, focus.Focus), nil
}

func (d *Detector) topLevel(conn *xgb.Conn, win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(conn, win).Reply()
		if err != nil || reply.Parent == d.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (d *Detector) windowName(conn *xgb.Conn, win xproto.Window) string {
	data, err := d.property(conn, win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = d.property(conn, win, d.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

func (d *Detector) windowClass(conn *xgb.Conn, win xproto.Window) (instance, class string) {
	data, err := d.property(conn, win, d.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil || len(data) == 0 {
		return "", ""
	}
	return parseWMClass(data)
}

// parseWMClass splits a WM_CLASS value into its instance and class parts
func parseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

// CaptureScreens grabs every screen root as a PNG
func (d *Detector) CaptureScreens() ([]window.Screenshot, error) {
	conn, err := d.connection()
	if err != nil {
		return nil, err
	}

	var shots []window.Screenshot
	var lastErr error
	for i, screen := range xproto.Setup(conn).Roots {
		w, h := int(screen.WidthInPixels), int(screen.HeightInPixels)
		reply, err := xproto.GetImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(screen.Root),
			0, 0, screen.WidthInPixels, screen.HeightInPixels, 0xffffffff).Reply()
		if err != nil {
			lastErr = fmt.Errorf("failed to read screen %d: %w", i, err)
			continue
		}

		img, err := zpixmapToRGBA(reply.Data, reply.Depth, w, h)
		if err != nil {
			lastErr = fmt.Errorf("screen %d: %w", i, err)
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			lastErr = fmt.Errorf("failed to encode screen %d: %w", i, err)
			continue
		}
		shots = append(shots, window.Screenshot{Screen: i, Width: w, Height: h, PNG: buf.Bytes()})
	}

	if len(shots) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return shots, nil
}

// zpixmapToRGBA converts 24/32-bit little-endian BGRX pixel data
func zpixmapToRGBA(data []byte, depth byte, w, h int) (*image.RGBA, error) {
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported pixel depth %d", depth)
	}
	if len(data) < w*h*4 {
		return nil, fmt.Errorf("short image data: %d bytes for %dx%d", len(data), w, h)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		o := i * 4
		img.Pix[o] = data[o+2]
		img.Pix[o+1] = data[o+1]
		img.Pix[o+2] = data[o]
		img.Pix[o+3] = 0xff
	}
	return img, nil
}

// WatchInput polls pointer and keymap state, reporting moves, button changes,
// newly pressed keys and the autorepeats of held keys until ctx is done
func (d *Detector) WatchInput(ctx context.Context, emit func(window.InputKind)) error {
	conn, err := d.connection()
	if err != nil {
		return err
	}

	repeat := newAutorepeat(conn)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	var prev inputState
	var last time.Time
	first := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			cur, err := d.readInput(conn)
			if err != nil {
				continue
			}
			if !first {
				mouse, keys := prev.diff(cur)
				keys += repeat.repeats(&prev.keys, &cur.keys, last, now)
				for i := 0; i < mouse; i++ {
					emit(window.MouseInput)
				}
				for i := 0; i < keys; i++ {
					emit(window.KeyboardInput)
				}
			}
			prev, last, first = cur, now, false
		}
	}
}

// X server defaults for "xset r rate": 660ms delay, 25 repeats per second.
const (
	defaultRepeatDelay  = 660 * time.Millisecond
	defaultRepeatPeriod = 40 * time.Millisecond
)

// autorepeat estimates the key repeats a held key generates between polls,
// since the keymap only shows that the key is still down.
type autorepeat struct {
	enabled bool
	delay   time.Duration
	period  time.Duration
	keys    [32]byte // per-key repeat enable
	since   [256]time.Time
}

// newAutorepeat reads the server's repeat switches, falling back to repeat
// on for every key.
func newAutorepeat(conn *xgb.Conn) *autorepeat {
	a := &autorepeat{enabled: true, delay: defaultRepeatDelay, period: defaultRepeatPeriod}
	for i := range a.keys {
		a.keys[i] = 0xff
	}

	ctl, err := xproto.GetKeyboardControl(conn).Reply()
	if err != nil {
		return a
	}
	a.enabled = ctl.GlobalAutoRepeat != xproto.AutoRepeatModeOff
	copy(a.keys[:], ctl.AutoRepeats)
	return a
}

// repeats records presses seen in cur and returns the repeats generated
// between last and now by keys held in both prev and cur. A press is dated
// to the poll that first saw it.
func (a *autorepeat) repeats(prev, cur *[32]byte, last, now time.Time) int {
	n := 0
	for code := 0; code < 256; code++ {
		idx, bit := code/8, byte(1)<<(code%8)
		if cur[idx]&bit == 0 {
			continue
		}
		if prev[idx]&bit == 0 {
			a.since[code] = now
			continue
		}
		if !a.enabled || a.keys[idx]&bit == 0 {
			continue
		}
		n += a.count(now.Sub(a.since[code])) - a.count(last.Sub(a.since[code]))
	}
	return n
}

// count is the number of repeats a key held for d has produced.
func (a *autorepeat) count(d time.Duration) int {
	if d < a.delay {
		return 0
	}
	return 1 + int((d-a.delay)/a.period)
}

type inputState struct {
	x, y    int16
	buttons uint16
	keys    [32]byte
}

func (d *Detector) readInput(conn *xgb.Conn) (inputState, error) {
	var st inputState

	ptr, err := xproto.QueryPointer(conn, d.root).Reply()
	if err != nil {
		return st, err
	}
	st.x, st.y = ptr.RootX, ptr.RootY
	st.buttons = ptr.Mask & buttonMask

	km, err := xproto.QueryKeymap(conn).Reply()
	if err != nil {
		return st, err
	}
	copy(st.keys[:], km.Keys)
	return st, nil
}

// diff returns the mouse and keyboard events implied by moving from s to cur.
// A pointer move or button change counts as one mouse event; every key that
// went down counts as one keyboard event.
func (s inputState) diff(cur inputState) (mouse, keys int) {
	if cur.x != s.x || cur.y != s.y {
		mouse++
	}
	if pressed := cur.buttons &^ s.buttons; pressed != 0 {
		mouse += bits.OnesCount16(pressed)
	}
	for i := range cur.keys {
		keys += bits.OnesCount8(cur.keys[i] &^ s.keys[i])
	}
	return mouse, keys
}

// Close cleans up the X connection
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}
