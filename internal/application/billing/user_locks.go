package billing

import "sync"

// userLocks un mutex por usuario. Serializa contar y crear facturas dentro del proceso;
// entre réplicas la cuota sigue siendo best-effort.
type userLocks struct {
	m sync.Map // userID -> *sync.Mutex
}

func (l *userLocks) lock(userID string) (unlock func()) {
	v, _ := l.m.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
