package crash

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSession struct {
	dir     string
	name    string
	saved   int
	saveErr error
}

func (f *fakeSession) CrashDir() string     { return f.dir }
func (f *fakeSession) TemplateName() string { return f.name }
func (f *fakeSession) AutosaveCrash() (string, error) {
	f.saved++
	if f.saveErr != nil {
		return "", f.saveErr
	}
	p := filepath.Join(f.dir, "autosave.html")
	return p, os.WriteFile(p, []byte("text"), 0o644)
}

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Label Designer Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
	if strings.Contains(s, "Template:") {
		t.Fatalf("unexpected template line without session")
	}
}

func TestWriteReportUsesSessionDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	s := &fakeSession{dir: dir, name: "Shelf Tag"}

	path, err := writeReport(s, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected crash report under %s, got %s", dir, path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Template: Shelf Tag") {
		t.Fatalf("template name missing: %s", b)
	}
	if s.saved != 0 {
		t.Fatalf("writeReport must not autosave")
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	called := false
	old := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = old }()

	s := &fakeSession{dir: t.TempDir(), saveErr: errors.New("unused")}
	func() {
		defer Recover(s)
	}()
	if called || s.saved != 0 {
		t.Fatalf("recover acted without a panic")
	}
}
