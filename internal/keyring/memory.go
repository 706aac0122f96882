package keyring

import (
	"sync"

	kerrors "github.com/illarion/tavernvault/internal/errors"
)

type entryID struct {
	namespace string
	name      string
}

// Memory is an in-process Store. Its contents vanish with the process.
type Memory struct {
	mu      sync.Mutex
	entries map[entryID]string
	failure error
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[entryID]string)}
}

// SetUnavailable makes every later call fail with err wrapped as a
// store-unavailable error. A nil err restores normal operation.
func (m *Memory) SetUnavailable(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

func (m *Memory) Set(namespace, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return kerrors.E(kerrors.KindStoreUnavailable, "keyring set", m.failure)
	}
	m.entries[entryID{namespace, name}] = value
	return nil
}

func (m *Memory) Get(namespace, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return "", false, kerrors.E(kerrors.KindStoreUnavailable, "keyring get", m.failure)
	}
	value, ok := m.entries[entryID{namespace, name}]
	return value, ok, nil
}

func (m *Memory) Delete(namespace, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return kerrors.E(kerrors.KindStoreUnavailable, "keyring delete", m.failure)
	}
	delete(m.entries, entryID{namespace, name})
	return nil
}
