package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestComponentLoggerBeforeInit(t *testing.T) {
	Close()
	log := ComponentLogger("window")
	// Must not panic or write anywhere.
	log.Info("dropped")
}

func TestInitWriterAttachesComponentAndRun(t *testing.T) {
	defer Close()
	var buf bytes.Buffer
	InitWriter(&buf)
	SetDebug(false)

	ComponentLogger("alert").Info("fired", "sensor", "Core 0")
	ComponentLogger("alert").Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=alert") {
		t.Errorf("missing component attr: %q", out)
	}
	if !strings.Contains(out, "run="+RunID()) {
		t.Errorf("missing run attr: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}

	SetDebug(true)
	ComponentLogger("alert").Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug line missing after SetDebug(true)")
	}
	SetDebug(false)
}

func TestInitCreatesFile(t *testing.T) {
	defer Close()
	Close()
	path := filepath.Join(t.TempDir(), "nested", "tempwatch.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ComponentLogger("test").Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing message: %q", data)
	}
}
