package coordinator

import (
	"sync"

	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/model"
)

// EventType enumerates coordinator lifecycle events.
type EventType string

const (
	EventTestRunStarted       EventType = "test_run_started"
	EventTestRunStatusChanged EventType = "test_run_status_changed"
	EventBotCompleted         EventType = "bot_completed"
	EventTestRunCompleted     EventType = "test_run_completed"
	EventSuiteStarted         EventType = "suite_started"
	EventSuiteTestCompleted   EventType = "suite_test_completed"
	EventSuiteCompleted       EventType = "suite_completed"
)

// Event is delivered to subscribed listeners. Only the fields relevant to
// the event type are populated.
type Event struct {
	Type     EventType
	TestRun  *model.TestRun
	SuiteRun *model.TestSuiteRun
	Bot      *model.BotResult
}

type Listener func(Event)

// notifier fans events out to an explicit observer list. A panicking
// listener is logged and dropped from the delivery, never allowed to abort
// aggregation in the coordinator itself.
type notifier struct {
	mu        sync.Mutex
	listeners []Listener
}

func (n *notifier) Subscribe(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

func (n *notifier) publish(ev Event) {
	n.mu.Lock()
	listeners := make([]Listener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Logger.Warn("Event listener panicked",
						"event", ev.Type,
						"panic", r)
				}
			}()
			l(ev)
		}()
	}
}
