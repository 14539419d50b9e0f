package keylock

import "sync"

// KeyedMutex hands out one mutex per key. Entries are dropped once no
// goroutine holds or waits on them.
type KeyedMutex struct {
	mutex *sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{
		mutex: &sync.Mutex{},
		locks: make(map[string]*entry),
	}
}

// Lock blocks until key is free and returns the matching unlock func. The
// unlock func is safe to call more than once.
func (k *KeyedMutex) Lock(key string) func() {
	k.mutex.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mutex.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			k.mutex.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mutex.Unlock()
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	return len(k.locks)
}
