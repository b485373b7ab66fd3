package checkpoint

import (
	"context"
	"sync"
)

// MemoryStrategy keeps encoded checkpoints in memory. Restored data goes through the same
// encoding as the persistent strategies.
type MemoryStrategy struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStrategy() *MemoryStrategy {
	return &MemoryStrategy{records: make(map[string][]byte)}
}

func (s *MemoryStrategy) Save(_ context.Context, id string, data Data) error {
	if err := ValidateIdentifier(id); err != nil {
		return err
	}
	content, err := encode(id, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = content

	return nil
}

func (s *MemoryStrategy) Restore(_ context.Context, id string) (Data, bool, error) {
	s.mu.RLock()
	content, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	data, err := decode(id, content)
	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

func (s *MemoryStrategy) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)

	return nil
}

var (
	_ Strategy = (*MemoryStrategy)(nil)
	_ Deleter  = (*MemoryStrategy)(nil)
)
