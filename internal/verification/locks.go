package verification

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// stageLocks serializes stage writes per subject+stage. tryAcquire fails fast
// instead of queueing so a concurrent duplicate request surfaces as a
// ConflictError rather than a lost-update race.
type stageLocks struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newStageLocks() *stageLocks {
	return &stageLocks{inFlight: make(map[string]struct{})}
}

func lockKey(subjectID uuid.UUID, stage Stage) string {
	return fmt.Sprintf("%s/%s", subjectID, stage)
}

func (l *stageLocks) tryAcquire(subjectID uuid.UUID, stage Stage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := lockKey(subjectID, stage)
	if _, held := l.inFlight[key]; held {
		return false
	}
	l.inFlight[key] = struct{}{}
	return true
}

func (l *stageLocks) release(subjectID uuid.UUID, stage Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, lockKey(subjectID, stage))
}
