package enrich

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo keeps run records in process, for the in-memory desk.
type MemoryRepo struct {
	mu    sync.Mutex
	seq   int
	runs  map[string]Run
	books map[string][]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{runs: map[string]Run{}, books: map[string][]string{}}
}

func (r *MemoryRepo) CreateRun(ctx context.Context, run *Run) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := fmt.Sprintf("run-%d", r.seq)
	stored := *run
	stored.ID = id
	r.runs[id] = stored
	return id, nil
}

func (r *MemoryRepo) UpdateRun(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return fmt.Errorf("enrich run %s not found", run.ID)
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryRepo) LinkBook(ctx context.Context, runID, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.books[runID] {
		if id == bookID {
			return nil
		}
	}
	r.books[runID] = append(r.books[runID], bookID)
	return nil
}

// Run returns a stored run by ID.
func (r *MemoryRepo) Run(id string) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	return run, ok
}

func (r *MemoryRepo) LinkedBooks(runID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.books[runID]...)
	sort.Strings(out)
	return out
}
