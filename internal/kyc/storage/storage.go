package storage

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
)

// JobStore provides in-memory storage for batch jobs. Document images are
// processed in RAM only and zeroed after use; finished jobs are cleaned up
// after a TTL.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.BatchJob
	ttl  time.Duration
	done chan struct{}
}

// NewJobStore creates a new in-memory job store with the given TTL
func NewJobStore(ttl time.Duration) *JobStore {
	s := &JobStore{
		jobs: make(map[string]*domain.BatchJob),
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Close stops the background cleanup loop
func (s *JobStore) Close() {
	close(s.done)
}

// GenerateJobID creates a cryptographically random job ID
func GenerateJobID() string {
	b := make([]byte, 16)
	rand.Read(b)
	const hex = "0123456789abcdef"
	id := make([]byte, 32)
	for i, v := range b {
		id[i*2] = hex[v>>4]
		id[i*2+1] = hex[v&0x0f]
	}
	return string(id)
}

// StoreJob stores a batch job
func (s *JobStore) StoreJob(job *domain.BatchJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job
}

// GetJob retrieves a snapshot of a batch job by ID. The copy keeps
// readers safe from concurrent UpdateJob mutations; the report pointer
// is shared but never written again once attached.
func (s *JobStore) GetJob(jobID string) *domain.BatchJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}

// UpdateJob updates an existing batch job
func (s *JobStore) UpdateJob(jobID string, update func(*domain.BatchJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		update(job)
	}
}

// DeleteJob removes a job from storage
func (s *JobStore) DeleteJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// ZeroBytes overwrites a byte slice with zeros for secure deletion.
// This prevents sensitive document images from lingering in memory.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// cleanupLoop periodically removes expired jobs
func (s *JobStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *JobStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.ttl)
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
