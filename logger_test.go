package tiler

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogger returns a debug-level text logger writing into buf.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggerSilentByDefault(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)

	l := Logger()
	if l == nil {
		t.Fatal("SetLogger(nil) left a nil logger")
	}
	if _, ok := l.Handler().(nopHandler); !ok {
		t.Errorf("handler = %T, want nopHandler", l.Handler())
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("silent logger enabled at error level")
	}
}

func TestSetupUsesPackageLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(captureLogger(&buf))

	s := New(WithVectorLanes(4))
	if err := s.Setup(4, 64, 64, false); err != nil {
		t.Fatalf("Setup() = %v", err)
	}
	s.Shutdown()

	out := buf.String()
	for _, want := range []string{"tiler set up", "tiles=4", "grid=2x2", "tile worker started", "tiler shut down"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestWithLoggerOverridesPackageLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var global, local bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&global, nil)))

	s := New(WithVectorLanes(4), WithLogger(slog.New(slog.NewTextHandler(&local, nil))))
	if err := s.Setup(1, 16, 16, false); err != nil {
		t.Fatalf("Setup() = %v", err)
	}
	s.Shutdown()

	if global.Len() != 0 {
		t.Errorf("package logger received output: %s", global.String())
	}
	if !strings.Contains(local.String(), "tiler set up") {
		t.Errorf("scheduler logger missing setup record: %s", local.String())
	}
}

func TestPresentOverBudgetWarns(t *testing.T) {
	var buf bytes.Buffer
	s := newScheduler(t, 4, 64, 64, false, WithLogger(captureLogger(&buf)))
	drawAndCopy(t, s, 0xFF000003)

	if st := s.Present(&recorder{delay: 5 * time.Millisecond}, time.Millisecond); !st.OverBudget {
		t.Fatalf("Present = %+v, want over budget", st)
	}
	if out := buf.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "present over budget") {
		t.Errorf("missing over-budget warning:\n%s", out)
	}
}
