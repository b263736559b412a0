// Copyright 2026 fanjia1024
// In-memory secret store (for tests and local development)

package secrets

import (
	"context"
	"fmt"
)

type memoryStore struct {
	secrets map[string]string
}

// NewMemoryStore 创建内存 secret store，values 在创建后只读
func NewMemoryStore(values map[string]string) Store {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &memoryStore{secrets: copied}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.secrets[key]
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, nil
}
