package daemon

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestPIDFileLifecycle(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "tasktrack.pid"))

	if running, _, err := d.IsRunning(); err != nil || running {
		t.Fatalf("IsRunning() without PID file = %v, %v", running, err)
	}

	if err := d.Acquire(); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	running, pid, err := d.IsRunning()
	if err != nil || !running || pid != os.Getpid() {
		t.Errorf("IsRunning() = %v, %d, %v, want this process", running, pid, err)
	}

	// re-acquiring from the owning process is allowed
	if err := d.Acquire(); err != nil {
		t.Errorf("second Acquire() error: %v", err)
	}

	if err := d.RemovePID(); err != nil {
		t.Fatalf("RemovePID() error: %v", err)
	}
	if err := d.RemovePID(); err != nil {
		t.Errorf("RemovePID() on missing file error: %v", err)
	}
}

func TestAcquireRefusesLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasktrack.pid")
	// the parent of the test binary is alive for the duration of the test
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := New(path).Acquire(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Acquire() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestInvalidPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasktrack.pid")
	os.WriteFile(path, []byte("not-a-pid"), 0644)

	if _, err := New(path).ReadPID(); err == nil {
		t.Error("ReadPID() accepted garbage")
	}
}

func TestStopWithoutProcess(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "tasktrack.pid"))
	if _, err := d.Stop(); err == nil {
		t.Error("Stop() without a running tracker succeeded")
	}
}

func TestRedirectLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasktrack.log")
	defer log.SetOutput(os.Stderr)

	closer, err := RedirectLog(path)
	if err != nil {
		t.Fatalf("RedirectLog() error: %v", err)
	}
	log.Println("block delivered")
	closer.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "block delivered") {
		t.Errorf("log file = %q", data)
	}
}
