package kvstore

import (
	"os"
	"path/filepath"
	"testing"
)

type point struct {
	X, Y float64
}

func TestSetGetPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set("p", point{1.5, -2}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var got point
	ok, err := reopened.Get("p", &got)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got != (point{1.5, -2}) {
		t.Fatalf("got %+v", got)
	}

	if err := reopened.Delete("p"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := reopened.Get("p", &got); ok {
		t.Fatal("key still present after delete")
	}
	if len(reopened.Keys()) != 0 {
		t.Fatalf("keys = %v", reopened.Keys())
	}
}

func TestOpenMalformedStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("expected empty store, keys = %v", s.Keys())
	}
}

func TestGetDecodeError(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", "text"); err != nil {
		t.Fatal(err)
	}
	var n int
	if ok, err := s.Get("k", &n); !ok || err == nil {
		t.Fatalf("expected decode error, ok=%v err=%v", ok, err)
	}
}
