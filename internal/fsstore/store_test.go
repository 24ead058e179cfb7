package fsstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "datasheet.pdf", "datasheet.pdf"},
		{"spaces become underscores", "wiring diagram v2.png", "wiring_diagram_v2.png"},
		{"tabs and newlines", "a\tb\nc", "a_b_c"},
		{"path characters stripped", "../../etc/passwd", "....etcpasswd"},
		{"unicode stripped", "blåbær.txt", "blbr.txt"},
		{"keeps dots dashes underscores", "a-b_c.d", "a-b_c.d"},
		{"only invalid characters", "???", ""},
		{"empty", "", ""},
		{"current dir segment", ".", ""},
		{"parent dir segment", "..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeName(tt.in); got != tt.want {
				t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPathFor(t *testing.T) {
	s := New("/data")

	if got := s.PathFor("item", "PUMP-100", "doc.pdf"); got != filepath.Join("item", "PUMP-100", "doc.pdf") {
		t.Errorf("PathFor with ref = %q", got)
	}
	if got := s.PathFor("item", "", "doc.pdf"); got != filepath.Join("item", "doc.pdf") {
		t.Errorf("PathFor without ref = %q", got)
	}
	if got := s.PathFor("individual", "PRJ-1/17", "badge.png"); got != filepath.Join("individual", "PRJ-1", "17", "badge.png") {
		t.Errorf("PathFor with hierarchical ref = %q", got)
	}
	if got := s.PathFor("item", "../../evil", "x.txt"); got != filepath.Join("item", "evil", "x.txt") {
		t.Errorf("PathFor with traversal ref = %q", got)
	}
	if got := s.PathFor("../item", "PUMP-100", "x.txt"); got != filepath.Join("item", "PUMP-100", "x.txt") {
		t.Errorf("PathFor with traversal entity = %q", got)
	}
}

func TestWriteStaysUnderRoot(t *testing.T) {
	parent := t.TempDir()
	s := New(filepath.Join(parent, "storage"))

	rel, err := s.Write("item", "../../evil", "x.txt", []byte("x"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if rel != filepath.Join("item", "evil", "x.txt") {
		t.Errorf("unexpected path %q", rel)
	}
	if !s.Exists(rel) {
		t.Fatal("written file not found under root")
	}
	if _, err := os.Stat(filepath.Join(parent, "evil", "x.txt")); err == nil {
		t.Fatal("file escaped the storage root")
	}
}

func TestRemoveRejectsEscapingPath(t *testing.T) {
	parent := t.TempDir()
	s := New(filepath.Join(parent, "storage"))

	outside := filepath.Join(parent, "keep.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove("../keep.txt"); err == nil {
		t.Fatal("Remove accepted a path outside the root")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside the root was touched: %v", err)
	}
	if s.Exists("../keep.txt") {
		t.Error("Exists reported a path outside the root")
	}
}

func TestWriteAndOverwrite(t *testing.T) {
	s := New(t.TempDir())

	rel, err := s.Write("item", "PUMP-100", "spec sheet.pdf", []byte("v1"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if rel != filepath.Join("item", "PUMP-100", "spec_sheet.pdf") {
		t.Errorf("unexpected path %q", rel)
	}
	if !s.Exists(rel) {
		t.Fatal("written file not found")
	}

	// Same name replaces the content at the same path
	rel2, err := s.Write("item", "PUMP-100", "spec sheet.pdf", []byte("v2"))
	if err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if rel2 != rel {
		t.Errorf("overwrite moved the file: %q vs %q", rel2, rel)
	}
	data, err := os.ReadFile(filepath.Join(s.Root, rel))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s := New(t.TempDir())

	rel, err := s.Write("item", "", "doc.pdf", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(rel); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if s.Exists(rel) {
		t.Fatal("file still present after Remove")
	}
	if err := s.Remove(rel); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}

func TestRollback(t *testing.T) {
	s := New(t.TempDir())

	var paths []string
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		rel, err := s.Write("item", "PUMP-100", name, []byte("x"))
		if err != nil {
			t.Fatal(err)
		}
		paths = append(paths, rel)
	}

	// A path that was never written must not break the rest
	s.Rollback(append([]string{"item/PUMP-100/ghost.pdf"}, paths...))

	for _, p := range paths {
		if s.Exists(p) {
			t.Errorf("%s survived rollback", p)
		}
	}
}
