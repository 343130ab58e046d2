// Package events is the in-process pub/sub broker for committed ledger
// activity. Handlers run only for effects that made it into a block.
package events

import (
	"sync"

	"cosmossdk.io/log"
)

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit     EventType = "block_commit"
	EventTxExecuted      EventType = "tx_executed"
	EventGroupRejected   EventType = "group_rejected"
	EventPayment         EventType = "payment"
	EventAppCreated      EventType = "app_created"
	EventStakeRegistered EventType = "stake_registered"
	EventMoveCommitted   EventType = "move_committed"
	EventMoveRevealed    EventType = "move_revealed"
	EventGameSettled     EventType = "game_settled"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	Type  EventType      `json:"type"`
	TxID  string         `json:"tx_id"`
	Round uint64         `json:"round"`
	Data  map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	logger   log.Logger
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter(logger log.Logger) *Emitter {
	return &Emitter{
		handlers: make(map[EventType][]Handler),
		logger:   logger.With("module", "events"),
	}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot halt block production.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("event handler panicked", "type", ev.Type, "panic", r)
				}
			}()
			h(ev)
		}()
	}
}
