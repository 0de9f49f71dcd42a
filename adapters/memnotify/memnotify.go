package memnotify

import (
	"context"
	"sync"

	"github.com/drillsoft/sectionflow"
)

// Notifier collects change events in memory, for tests.
type Notifier struct {
	mu     sync.Mutex
	events []sectionflow.ChangeEvent
}

func New() *Notifier {
	return &Notifier{}
}

var _ sectionflow.ChangeNotifier = (*Notifier)(nil)

func (n *Notifier) Notify(ctx context.Context, ev sectionflow.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, ev)
	return nil
}

func (n *Notifier) Events() []sectionflow.ChangeEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	events := make([]sectionflow.ChangeEvent, len(n.events))
	copy(events, n.events)
	return events
}
