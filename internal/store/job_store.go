package store

import (
	"sort"
	"sync"
	"time"

	"github.com/cutroom/api/internal/model"
)

// JobStore is the repository for job records. Update applies fn to the live
// record under that job's lock, so the background executor and inbound
// callbacks cannot interleave partial writes on the same job.
type JobStore interface {
	Create(job *model.Job)
	Get(id string) (*model.Job, bool)
	List() []*model.Job
	Update(id string, fn func(*model.Job)) (*model.Job, bool)
	Delete(id string) bool
}

type jobEntry struct {
	mu  sync.Mutex
	job *model.Job
}

// MemoryJobStore keeps job records in process memory with one lock per job.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*jobEntry)}
}

func (s *MemoryJobStore) Create(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &jobEntry{job: job.Clone()}
}

func (s *MemoryJobStore) Get(id string) (*model.Job, bool) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job.Clone(), true
}

// List returns all jobs, newest first.
func (s *MemoryJobStore) List() []*model.Job {
	s.mu.RLock()
	entries := make([]*jobEntry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*model.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.job.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Update applies fn under the job's lock, bumps UpdatedAt, and returns a
// copy of the result. ok is false when the job does not exist.
func (s *MemoryJobStore) Update(id string, fn func(*model.Job)) (*model.Job, bool) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	fn(entry.job)
	entry.job.UpdatedAt = time.Now()
	return entry.job.Clone(), true
}

func (s *MemoryJobStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}
