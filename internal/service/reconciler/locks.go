package reconciler

import "sync"

// lockMap hands out one mutex per building. Mutexes are created on first use
// and never removed, so every caller for a building contends on the same one.
type lockMap struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newLockMap() *lockMap {
	return &lockMap{locks: make(map[int64]*sync.Mutex)}
}

func (m *lockMap) get(buildingID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[buildingID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[buildingID] = lock
	}

	return lock
}
