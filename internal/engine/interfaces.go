package engine

import (
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
)

// Journal receives the append-only event stream of one engine. It is
// observability only: the orchestrator never reads events back.
// Implementations must be safe for concurrent use; the orchestrator discards
// write errors.
type Journal interface {
	Record(ev *domain.ProcessEvent) error
	Close() error
}
