package jobs

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrDuplicateID is returned by Create when the id is already present.
	ErrDuplicateID = errors.New("job id already exists")
)

// Result captures everything a client needs to construct a delivery
// request once a job has finished.
type Result struct {
	Title    string
	Filename string
	Ext      string
	FormatID string
	// ArtifactPath is set in local mode: the persisted file under the
	// download directory, named {job_id}.{ext}.
	ArtifactPath string
	// DirectURL is set in relay mode: the resolved upstream media URL
	// bytes are streamed from at delivery time.
	DirectURL string
	Filesize  int64
}

// State is the mutable portion of a job. Workers write a complete
// State on every progress event; readers never observe a partially
// applied update because the registry swaps the whole value under its
// lock.
type State struct {
	Status   Status
	Progress float64
	Speed    string
	ETA      string
	Error    string
	Result   *Result
}

// Job is one tracked download: identity fields are fixed at creation,
// State is replaced wholesale by the single worker that owns the id.
type Job struct {
	ID              string
	URL             string
	RequestedFormat string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	State           State
}

// Registry is the process-wide job store. It supports concurrent reads
// from many pollers and one writer per job id. The order slice is
// append-only, so it holds ids oldest-first and the retention sweep can
// stop scanning as soon as it reaches entries younger than the cutoff.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Job
	order   []string
	onEvict func(Job)
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Job)}
}

// OnEvict registers a hook invoked (outside the registry lock) for each
// job removed by Sweep. Used to delete local artifacts alongside their
// registry entries.
func (r *Registry) OnEvict(fn func(Job)) {
	r.mu.Lock()
	r.onEvict = fn
	r.mu.Unlock()
}

// Create registers a new job in state queued. It fails if the id was
// already issued; ids are never reused.
func (r *Registry) Create(id, url, requestedFormat string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; ok {
		return ErrDuplicateID
	}

	now := time.Now().UTC()
	r.byID[id] = &Job{
		ID:              id,
		URL:             url,
		RequestedFormat: requestedFormat,
		CreatedAt:       now,
		UpdatedAt:       now,
		State:           State{Status: StatusQueued},
	}
	r.order = append(r.order, id)
	return nil
}

// Update replaces the job's state snapshot. Unknown ids are ignored:
// the only writer is the worker that created the entry, so a miss means
// the entry was already evicted and the update is moot. Writes against
// a terminal state are also ignored, which makes the terminal write a
// one-shot regardless of callback timing.
func (r *Registry) Update(id string, st State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.byID[id]
	if !ok || job.State.Status.Terminal() {
		return
	}
	job.State = st
	job.UpdatedAt = time.Now().UTC()
}

// Get returns a copy of the job, so callers can read fields without
// holding any lock.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.byID[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Sweep evicts terminal jobs whose last update is older than cutoff and
// returns how many were removed. Non-terminal jobs are never evicted,
// whatever their age. The scan walks entries in creation order and
// stops at the first job created after the cutoff; anything younger
// cannot have gone terminal before it was created.
func (r *Registry) Sweep(cutoff time.Time) int {
	r.mu.Lock()

	var evicted []Job
	kept := r.order[:0]
	stopped := false
	for _, id := range r.order {
		if stopped {
			kept = append(kept, id)
			continue
		}
		job, ok := r.byID[id]
		if !ok {
			continue
		}
		if job.CreatedAt.After(cutoff) {
			stopped = true
			kept = append(kept, id)
			continue
		}
		if job.State.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			evicted = append(evicted, *job)
			delete(r.byID, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	hook := r.onEvict
	r.mu.Unlock()

	if hook != nil {
		for _, job := range evicted {
			hook(job)
		}
	}
	return len(evicted)
}
