package main

import (
	"errors"
	"sync"
)

var errBusy = errors.New("a generation is already running for this subject")

// queue admits one in-flight generation per subject.
type queue struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newQueue() *queue {
	return &queue{ids: make(map[string]struct{})}
}

func (q *queue) enter(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.ids[id]; ok {
		return errBusy
	}
	q.ids[id] = struct{}{}
	return nil
}

func (q *queue) release(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.ids, id)
}

func (q *queue) active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}
