package journal

import (
	"sync"

	"github.com/tmandere/stagehand/pkg/stagehand/domain"
)

// Reader is the query side used by the web and API layers to show event
// history. Both journal backends implement it.
type Reader interface {
	EventsByProcess(processID string, limit int) ([]domain.ProcessEvent, error)
	Recent(limit int) ([]domain.ProcessEvent, error)
}

// Recorder keeps the most recent events in memory. It is the journal used
// when no database is configured, and the one tests record against.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []domain.ProcessEvent
	nextID int64
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 512
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Record(ev *domain.ProcessEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ev.ID = r.nextID
	r.events = append(r.events, *ev)
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	return nil
}

func (r *Recorder) EventsByProcess(processID string, limit int) ([]domain.ProcessEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProcessEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].ProcessID != processID {
			continue
		}
		out = append(out, r.events[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *Recorder) Recent(limit int) ([]domain.ProcessEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProcessEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		out = append(out, r.events[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *Recorder) Close() error { return nil }
