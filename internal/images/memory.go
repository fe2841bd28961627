package images

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Memory keeps uploads in a map; test double for the GCS uploader.
type Memory struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Fail    error
}

func NewMemory() *Memory {
	return &Memory{Objects: map[string][]byte{}}
}

func (m *Memory) Upload(ctx context.Context, name, contentType string, data io.Reader) (string, error) {
	if m.Fail != nil {
		return "", m.Fail
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.Objects[name] = b
	m.mu.Unlock()
	return fmt.Sprintf("https://storage.example.com/%s", name), nil
}
