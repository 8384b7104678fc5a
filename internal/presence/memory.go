package presence

import (
	"context"
	"sort"
	"sync"
)

type memoryTracker struct {
	mu    sync.Mutex
	conns map[int64]int
}

func NewMemoryTracker() Tracker {
	return &memoryTracker{conns: make(map[int64]int)}
}

func (t *memoryTracker) Connect(_ context.Context, userID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conns[userID]++
	return t.conns[userID] == 1, nil
}

func (t *memoryTracker) Disconnect(_ context.Context, userID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.conns[userID]
	if !ok {
		return false, nil
	}
	if n <= 1 {
		delete(t.conns, userID)
		return true, nil
	}
	t.conns[userID] = n - 1
	return false, nil
}

func (t *memoryTracker) OnlineUserIDs(_ context.Context) ([]int64, error) {
	t.mu.Lock()
	ids := make([]int64, 0, len(t.conns))
	for id := range t.conns {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
