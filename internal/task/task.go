// Package task runs background work with observable completion.
//
// A Task is a set of independent Items.  The Queue executes tasks on a fixed
// worker pool, runs each task's items with bounded concurrency, and records
// every state change in a Tracker so callers can inspect progress after the
// request that submitted the work has returned.  One failing item never
// affects its siblings.
package task

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by trackers for unknown or expired task ids.
	ErrNotFound = errors.New("task not found")
	// ErrQueueFull is returned by Submit when the buffer is full.
	ErrQueueFull = errors.New("task queue full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("task queue closed")
)

// State of a task.
type State string

const (
	StateQueued  State = "QUEUED"
	StateRunning State = "RUNNING"
	StateDone    State = "DONE"
)

// ItemState of one item.
type ItemState string

const (
	ItemPending   ItemState = "PENDING"
	ItemRunning   ItemState = "RUNNING"
	ItemSucceeded ItemState = "SUCCEEDED"
	ItemFailed    ItemState = "FAILED"
)

// Item is one unit of work.  Kind groups items for metrics ("logo",
// "copy"); Name identifies the item inside its task ("logo", "page:home").
type Item struct {
	Name string
	Kind string
	Run  func(ctx context.Context) error
}

// Task is a batch of items submitted together.  ID is assigned by Submit
// when blank.  OnDone, when set, runs once after every item finished.
type Task struct {
	ID     string
	SiteID string
	Items  []Item
	OnDone func(Status)
}

// ItemStatus is the recorded outcome of one item.
type ItemStatus struct {
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	State      ItemState  `json:"state"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Status is the recorded state of a task.
type Status struct {
	ID         string       `json:"id"`
	SiteID     string       `json:"siteId,omitempty"`
	State      State        `json:"state"`
	Items      []ItemStatus `json:"items"`
	CreatedAt  time.Time    `json:"createdAt"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
}

// Done reports whether every item finished.
func (s Status) Done() bool { return s.State == StateDone }

// Failed counts failed items.
func (s Status) Failed() int {
	n := 0
	for _, it := range s.Items {
		if it.State == ItemFailed {
			n++
		}
	}
	return n
}

// Item returns the status of the named item.
func (s Status) Item(name string) (ItemStatus, bool) {
	for _, it := range s.Items {
		if it.Name == name {
			return it, true
		}
	}
	return ItemStatus{}, false
}

func (s Status) clone() Status {
	s.Items = append([]ItemStatus(nil), s.Items...)
	return s
}
