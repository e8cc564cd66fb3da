package main

import "context"

// nLock lets at most n holders through at once.
type nLock struct {
	slots chan struct{}
}

func newNLock(n uint) *nLock {
	if n == 0 {
		n = 1
	}
	return &nLock{slots: make(chan struct{}, n)}
}

// lock blocks until a slot frees up or ctx is done.
func (l *nLock) lock(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *nLock) unlock() {
	<-l.slots
}

func (l *nLock) held() int {
	return len(l.slots)
}
