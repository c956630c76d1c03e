package engine

import (
	"sync"

	"github.com/gyaneshwarpardhi/qsched/internal/job"
)

// resultStore keeps the results of asynchronous jobs. When full, the oldest
// entries are evicted first.
type resultStore struct {
	mu      sync.Mutex
	max     int
	results map[string]*job.Result // nil while pending
	order   []string
}

func newResultStore(max int) *resultStore {
	return &resultStore{max: max, results: make(map[string]*job.Result)}
}

// pending starts tracking id. It returns false, leaving the store
// unchanged, when id is already tracked.
func (s *resultStore) pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[id]; exists {
		return false
	}
	s.order = append(s.order, id)
	s.results[id] = nil
	for len(s.order) > s.max {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
	return true
}

func (s *resultStore) finish(res *job.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[res.JobID]; exists {
		s.results[res.JobID] = res
	}
}

// forget drops id if it is still pending. Finished results are kept.
func (s *resultStore) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, exists := s.results[id]; !exists || res != nil {
		return
	}
	delete(s.results, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *resultStore) get(id string) (res *job.Result, done, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok = s.results[id]
	return res, res != nil, ok
}
