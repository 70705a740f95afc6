// Package events carries todo change notifications from the service layer
// to connected clients. An in-process Hub serves a single instance; RedisBus
// fans events out across instances sharing a Redis server.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Action names the mutation that produced an event.
type Action string

const (
	ActionCreated Action = "created"
	ActionDeleted Action = "deleted"
	ActionToggled Action = "toggled"
)

// ErrClosed is returned by Subscribe once the bus has been closed.
var ErrClosed = errors.New("event bus closed")

// TodosChanged tells a user's clients that their todo list is stale.
type TodosChanged struct {
	UserID string    `json:"userId"`
	TodoID string    `json:"todoId"`
	Action Action    `json:"action"`
	At     time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev TodosChanged) error
}

// Subscriber delivers the events of one user. The returned channel is
// closed when ctx is done or the bus shuts down. Slow consumers miss
// events rather than block publishers.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan TodosChanged, error)
}

// Bus is both ends plus shutdown.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

func encodeEvent(ev TodosChanged) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeEvent(payload string) (TodosChanged, error) {
	var ev TodosChanged
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return TodosChanged{}, err
	}
	if ev.UserID == "" || ev.Action == "" {
		return TodosChanged{}, errors.New("incomplete event")
	}
	return ev, nil
}
