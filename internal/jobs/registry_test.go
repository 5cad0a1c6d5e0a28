package jobs

import (
	"testing"
	"time"
)

func TestRegistry_CreateDuplicateID(t *testing.T) {
	r := NewRegistry()
	if err := r.Create("a", "https://youtu.be/x", "22"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := r.Create("a", "https://youtu.be/x", "22"); err != ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("nonexistent"); ok {
		t.Fatalf("expected miss for unknown id")
	}
}

func TestRegistry_UpdateUnknownIsSilent(t *testing.T) {
	r := NewRegistry()
	// Must not panic or create an entry.
	r.Update("ghost", State{Status: StatusDownloading})
	if r.Len() != 0 {
		t.Fatalf("update of unknown id created an entry")
	}
}

func TestRegistry_SnapshotReplace(t *testing.T) {
	r := NewRegistry()
	if err := r.Create("a", "u", "f"); err != nil {
		t.Fatalf("create: %v", err)
	}

	r.Update("a", State{Status: StatusDownloading, Progress: 40, Speed: "1MiB/s", ETA: "10s"})
	r.Update("a", State{Status: StatusDownloading, Progress: 80})

	job, ok := r.Get("a")
	if !ok {
		t.Fatalf("job missing after update")
	}
	// Whole-snapshot replacement: stale speed/eta must not survive.
	if job.State.Progress != 80 || job.State.Speed != "" || job.State.ETA != "" {
		t.Fatalf("expected replaced snapshot, got %+v", job.State)
	}
}

func TestRegistry_TerminalStateIsWriteOnce(t *testing.T) {
	r := NewRegistry()
	if err := r.Create("a", "u", "f"); err != nil {
		t.Fatalf("create: %v", err)
	}

	r.Update("a", State{Status: StatusDownloading, Progress: 50})
	r.Update("a", State{Status: StatusFinished, Progress: 100, Result: &Result{Filename: "v.mp4"}})

	// A late progress callback must not move the job out of finished.
	r.Update("a", State{Status: StatusDownloading, Progress: 99})
	r.Update("a", State{Status: StatusError, Error: "late failure"})

	job, _ := r.Get("a")
	if job.State.Status != StatusFinished {
		t.Fatalf("terminal state overwritten: %s", job.State.Status)
	}
	if job.State.Result == nil || job.State.Result.Filename != "v.mp4" {
		t.Fatalf("finished result lost: %+v", job.State)
	}
}

func TestRegistry_SweepEvictsOnlyExpiredTerminal(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"done", "failed", "active", "fresh"} {
		if err := r.Create(id, "u", "f"); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	r.Update("done", State{Status: StatusFinished, Progress: 100, Result: &Result{}})
	r.Update("failed", State{Status: StatusError, Error: "boom"})
	r.Update("active", State{Status: StatusDownloading, Progress: 10})

	var evicted []string
	r.OnEvict(func(j Job) { evicted = append(evicted, j.ID) })

	// Cutoff in the future: everything qualifies by age, but only the
	// two terminal jobs may go.
	n := r.Sweep(time.Now().UTC().Add(time.Minute))
	if n != 2 {
		t.Fatalf("expected 2 evictions, got %d", n)
	}
	if len(evicted) != 2 {
		t.Fatalf("evict hook ran %d times, want 2", len(evicted))
	}
	if _, ok := r.Get("done"); ok {
		t.Fatalf("finished job survived sweep")
	}
	if _, ok := r.Get("active"); !ok {
		t.Fatalf("in-flight job was evicted")
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Fatalf("queued job was evicted")
	}
}

func TestRegistry_SweepKeepsRecentTerminal(t *testing.T) {
	r := NewRegistry()
	if err := r.Create("a", "u", "f"); err != nil {
		t.Fatalf("create: %v", err)
	}
	r.Update("a", State{Status: StatusFinished, Progress: 100, Result: &Result{}})

	// Cutoff in the past: the job just went terminal, so it stays.
	if n := r.Sweep(time.Now().UTC().Add(-time.Hour)); n != 0 {
		t.Fatalf("expected 0 evictions, got %d", n)
	}
	if _, ok := r.Get("a"); !ok {
		t.Fatalf("recent terminal job was evicted")
	}
}

func TestRegistry_ConcurrentPollersDuringUpdates(t *testing.T) {
	r := NewRegistry()
	if err := r.Create("a", "u", "f"); err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			r.Update("a", State{Status: StatusDownloading, Progress: float64(i % 101)})
		}
		r.Update("a", State{Status: StatusFinished, Progress: 100, Result: &Result{}})
	}()

	for {
		job, ok := r.Get("a")
		if !ok {
			t.Fatalf("job vanished mid-flight")
		}
		if job.State.Status == StatusFinished {
			break
		}
	}
	<-done
}
