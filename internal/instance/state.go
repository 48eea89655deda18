package instance

import (
	"sync"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
)

// stateStore holds the lifecycle status of an instance behind a lock. It is
// the single source of truth for what the instance is doing right now.
//
// The store doesn't enforce which transitions are legal, that's the manager's
// job: some transitions (e.g. forcing stopped during cleanup) are
// intentionally unconditional.
type stateStore struct {
	mu     sync.Mutex
	status model.InstanceStatus
	logger log.Logger
}

func newStateStore(initial model.InstanceStatus, logger log.Logger) *stateStore {
	return &stateStore{
		status: initial,
		logger: logger,
	}
}

// Read returns the current status.
func (s *stateStore) Read() model.InstanceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Write overwrites the current status unconditionally.
func (s *stateStore) Write(new model.InstanceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debugf("state transition: %s -> %s", s.status, new)
	s.status = new
}
