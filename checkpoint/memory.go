package checkpoint

import (
	"context"
	"sync"

	"github.com/hugolhafner/go-changefeed/observer"
)

var (
	_ Checkpointer = (*Memory)(nil)
	_ Loader       = (*Memory)(nil)
)

// Memory is a process-local checkpoint store for tests and single-process
// hosts. Writes never fail and ignore the context; positions do not survive
// a restart.
type Memory struct {
	mu     sync.RWMutex
	tokens map[memoryKey]string
}

type memoryKey struct {
	collection string
	partition  string
}

func NewMemory() *Memory {
	return &Memory{
		tokens: make(map[memoryKey]string),
	}
}

func (m *Memory) Checkpoint(_ context.Context, oc observer.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[memoryKey{collection: oc.Collection, partition: oc.Partition}] = token
	return nil
}

func (m *Memory) Load(_ context.Context, collection, partition string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tokens[memoryKey{collection: collection, partition: partition}], nil
}

// Token returns the stored token for a partition and whether one exists.
func (m *Memory) Token(collection, partition string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[memoryKey{collection: collection, partition: partition}]
	return token, ok
}
