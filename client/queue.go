package client

import (
	"encoding/json"
	"sync"

	"github.com/the-lightning-land/wifid/protocol"
)

// ErrorFunc receives the failure of one command.
type ErrorFunc func(err error)

// PendingCommand is a sent command waiting for its reply.
type PendingCommand struct {
	Command   *protocol.Command
	OnSuccess func(result json.RawMessage)
	OnError   ErrorFunc
}

// Queue holds pending commands in send order.
type Queue struct {
	mu      sync.Mutex
	entries []*PendingCommand
}

func (q *Queue) Push(p *PendingCommand) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, p)
}

// Pop removes the oldest pending command.
func (q *Queue) Pop() (*PendingCommand, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil, false
	}

	head := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]

	return head, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

// Drain empties the queue and returns what was pending.
func (q *Queue) Drain() []*PendingCommand {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.entries
	q.entries = nil

	return entries
}
