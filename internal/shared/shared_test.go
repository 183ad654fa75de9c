package shared

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "vcms.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		logger.Info("hello", "key", "value")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if len(data) == 0 {
			t.Error("expected log output in file")
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		tc := []struct {
			in   string
			want log.Level
		}{
			{"debug", log.DebugLevel},
			{" WARN ", log.WarnLevel},
			{"error", log.ErrorLevel},
			{"", log.InfoLevel},
			{"loud", log.InfoLevel},
		}
		for _, tt := range tc {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	})
}

func TestFormatBytes(t *testing.T) {
	if got := FormatBytes(0); got != "0 B" {
		t.Errorf("expected 0 B, got %s", got)
	}
	if got := FormatBytes(-5); got != "0 B" {
		t.Errorf("expected negative to clamp, got %s", got)
	}
	if got := FormatBytes(4 * 1000 * 1000); got != "4.0 MB" {
		t.Errorf("expected 4.0 MB, got %s", got)
	}
}

func TestCell(t *testing.T) {
	t.Run("replays current value to late subscribers", func(t *testing.T) {
		c := NewCell(false)
		c.Set(true)

		var got []bool
		cancel := c.Subscribe(func(v bool) { got = append(got, v) })
		defer cancel()

		if len(got) != 1 || got[0] != true {
			t.Fatalf("expected immediate replay of true, got %v", got)
		}

		c.Set(false)
		if len(got) != 2 || got[1] != false {
			t.Errorf("expected pushed false, got %v", got)
		}
	})

	t.Run("cancel stops delivery", func(t *testing.T) {
		c := NewCell(0)
		calls := 0
		cancel := c.Subscribe(func(int) { calls++ })
		cancel()
		cancel()
		c.Set(5)

		if calls != 1 {
			t.Errorf("expected only the replay call, got %d", calls)
		}
		if c.Subscribers() != 0 {
			t.Errorf("expected no subscribers, got %d", c.Subscribers())
		}
	})

	t.Run("Update", func(t *testing.T) {
		c := NewCell(1)
		if got := c.Update(func(v int) int { return v + 1 }); got != 2 {
			t.Errorf("expected 2, got %d", got)
		}
		if c.Get() != 2 {
			t.Errorf("expected stored 2, got %d", c.Get())
		}
	})
}

func TestDebouncer(t *testing.T) {
	t.Run("only the last trigger runs", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		defer d.Stop()

		var mu sync.Mutex
		var ran []int
		done := make(chan struct{}, 5)

		for i := range 5 {
			d.Trigger(func() {
				mu.Lock()
				ran = append(ran, i)
				mu.Unlock()
				done <- struct{}{}
			})
		}

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("debounced func never ran")
		}
		time.Sleep(60 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if len(ran) != 1 || ran[0] != 4 {
			t.Errorf("expected only the last trigger to run, got %v", ran)
		}
	})

	t.Run("Cancel drops pending work", func(t *testing.T) {
		d := NewDebouncer(10 * time.Millisecond)
		var calls atomic.Int32
		d.Trigger(func() { calls.Add(1) })
		d.Cancel()
		time.Sleep(40 * time.Millisecond)

		if calls.Load() != 0 {
			t.Errorf("expected no calls, got %d", calls.Load())
		}
	})

	t.Run("Stop ignores later triggers", func(t *testing.T) {
		d := NewDebouncer(5 * time.Millisecond)
		d.Stop()
		var calls atomic.Int32
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(30 * time.Millisecond)

		if calls.Load() != 0 {
			t.Errorf("expected no calls after Stop, got %d", calls.Load())
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	t.Run("rejects non-http links", func(t *testing.T) {
		for _, link := range []string{"", "file:///etc/passwd", "javascript:alert(1)", "/relative/path"} {
			if err := OpenBrowser(link); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for %q, got %v", link, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		if err := OpenBrowser("https://store.example/v.mp4"); !errors.Is(err, ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("platform launchers", func(t *testing.T) {
		for goos, bin := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
			cmd, err := browserCommand(goos, "https://x")
			if err != nil {
				t.Fatalf("expected no error for %s, got %v", goos, err)
			}
			if filepath.Base(cmd.Args[0]) != bin {
				t.Errorf("expected %s on %s, got %v", bin, goos, cmd.Args)
			}
		}
	})
}
