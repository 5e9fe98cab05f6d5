package photontrace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWriteExitAndClose(t *testing.T) {
	dir := t.TempDir()
	l, err := NewExitLogger(dir, 0, false)
	if err != nil {
		t.Fatalf("NewExitLogger: %v", err)
	}
	l.WriteExit(ExitRecord{Weight: 0.5, Dx: 0, Dy: 0, Dz: 1, PathLength: 2.5, X: 1, Y: 1, Z: 2, Tagged: true})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "exit-aperture-0.txt"))
	if err != nil {
		t.Fatalf("reading exit file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	fields := strings.Fields(line)
	if len(fields) != 9 {
		t.Fatalf("expected 9 fields (8 + tagged), got %d: %q", len(fields), line)
	}
	if fields[8] != "1" {
		t.Fatalf("expected tagged=1 trailing field, got %q", fields[8])
	}
}

func TestLoggerTracePathsDisabledByDefault(t *testing.T) {
	dir := t.TempDir()
	l, err := NewExitLogger(dir, 0, false)
	if err != nil {
		t.Fatalf("NewExitLogger: %v", err)
	}
	defer l.Close()

	if l.TracePaths() {
		t.Fatalf("expected TracePaths() false when not requested")
	}
	l.WritePath([]Point3{{1, 1, 1}}) // must be a safe no-op
	if _, err := os.Stat(filepath.Join(dir, "photon-paths-0.txt")); err == nil {
		t.Fatalf("photon-paths file should not have been created")
	}
}

func TestLoggerTracePathsEnabled(t *testing.T) {
	dir := t.TempDir()
	l, err := NewExitLogger(dir, 3, true)
	if err != nil {
		t.Fatalf("NewExitLogger: %v", err)
	}
	l.WritePath([]Point3{{0, 0, 0}, {1, 1, 1}})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "photon-paths-3.txt"))
	if err != nil {
		t.Fatalf("reading photon-paths file: %v", err)
	}
	if len(strings.Fields(string(data))) != 6 {
		t.Fatalf("expected 6 whitespace-separated values (2 points x 3), got %q", string(data))
	}
}

func TestWriteAbsorberSnapshot(t *testing.T) {
	dir := t.TempDir()
	a1 := NewSphereAbsorber(Point3{0, 0, 0}, 1, 1, 1)
	a1.Deposit(0.25)
	a2 := NewSphereAbsorber(Point3{1, 1, 1}, 1, 1, 1)
	a2.Deposit(0.75)

	if err := WriteAbsorberSnapshot(dir, 0, []*Absorber{a1, a2}); err != nil {
		t.Fatalf("WriteAbsorberSnapshot: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "absorbers-0.txt"))
	if err != nil {
		t.Fatalf("reading absorbers file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}
