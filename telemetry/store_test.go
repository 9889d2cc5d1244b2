package telemetry

import (
	"path/filepath"
	"reflect"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "runs", "pathomove.db"), 7, "seed: 7\n")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreWriteAndQuery(t *testing.T) {
	s := openTestStore(t)
	if s.RunID() == 0 {
		t.Fatal("run id not assigned")
	}

	infected := []int{0, 4, 9}
	for gen, n := range infected {
		rec := GenerationRecord{Gen: gen, PopSize: 20, Infected: n, PathogenIntroduced: n > 0}
		if err := s.WriteGeneration(rec); err != nil {
			t.Fatalf("WriteGeneration(%d): %v", gen, err)
		}
		if err := s.WriteNetwork(NetworkRecord{Gen: gen, Vertices: 20}); err != nil {
			t.Fatalf("WriteNetwork(%d): %v", gen, err)
		}
	}

	n, err := s.Generations()
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if n != 3 {
		t.Errorf("Generations = %d, want 3", n)
	}

	series, err := s.InfectedSeries()
	if err != nil {
		t.Fatalf("InfectedSeries: %v", err)
	}
	if !reflect.DeepEqual(series, infected) {
		t.Errorf("InfectedSeries = %v, want %v", series, infected)
	}
}

func TestStoreDuplicateGeneration(t *testing.T) {
	s := openTestStore(t)
	if err := s.WriteGeneration(GenerationRecord{Gen: 1}); err != nil {
		t.Fatalf("WriteGeneration: %v", err)
	}
	if err := s.WriteGeneration(GenerationRecord{Gen: 1}); err == nil {
		t.Error("expected primary key violation")
	}
}

func TestStoreRunsShareFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := OpenStore(path, 1, "")
	if err != nil {
		t.Fatalf("OpenStore a: %v", err)
	}
	if err := a.WriteGeneration(GenerationRecord{Gen: 0}); err != nil {
		t.Fatalf("WriteGeneration: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := OpenStore(path, 2, "")
	if err != nil {
		t.Fatalf("OpenStore b: %v", err)
	}
	defer b.Close()
	if b.RunID() == a.RunID() {
		t.Errorf("runs share id %d", b.RunID())
	}
	if n, _ := b.Generations(); n != 0 {
		t.Errorf("new run sees %d generations, want 0", n)
	}
}

func TestStoreDisabled(t *testing.T) {
	s, err := OpenStore("", 0, "")
	if err != nil || s != nil {
		t.Fatalf("OpenStore(\"\") = %v, %v; want nil, nil", s, err)
	}
	if err := s.WriteGeneration(GenerationRecord{}); err != nil {
		t.Errorf("nil WriteGeneration: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
