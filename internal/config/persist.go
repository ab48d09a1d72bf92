package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/valkey-io/valkey-go"
)

// ErrNotPersisted is returned by Persister.Load when no document exists yet.
var ErrNotPersisted = errors.New("no persisted config")

// Persister stores the mutable slot configuration durably.
type Persister interface {
	Load(ctx context.Context) (Mutable, error)
	Save(ctx context.Context, m Mutable) error
}

// FilePersister keeps the mutable config as a JSON document on disk.
type FilePersister struct {
	path string
}

// NewFilePersister creates a FilePersister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads the document. A missing file yields ErrNotPersisted.
func (p *FilePersister) Load(_ context.Context) (Mutable, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return Mutable{}, ErrNotPersisted
	}
	if err != nil {
		return Mutable{}, fmt.Errorf("failed to read %s: %w", p.path, err)
	}

	var m Mutable
	if err := json.Unmarshal(data, &m); err != nil {
		return Mutable{}, fmt.Errorf("failed to parse %s: %w", p.path, err)
	}
	return m, nil
}

// Save writes the document to a temporary file and renames it into place so
// readers never see a partial write.
func (p *FilePersister) Save(_ context.Context, m Mutable) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", p.path, err)
	}
	return nil
}

// ValkeyPersister keeps the mutable config as a JSON string under one Valkey key.
type ValkeyPersister struct {
	client valkey.Client
	key    string
}

// NewValkeyPersister connects to Valkey using cfg.
func NewValkeyPersister(cfg ValkeyConfig) (*ValkeyPersister, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.URL},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", cfg.URL, err)
	}
	return NewValkeyPersisterWithClient(client, cfg.Key), nil
}

// NewValkeyPersisterWithClient wraps an existing client.
func NewValkeyPersisterWithClient(client valkey.Client, key string) *ValkeyPersister {
	if key == "" {
		key = DefaultValkeyKey
	}
	return &ValkeyPersister{client: client, key: key}
}

// Load reads the document. A missing key yields ErrNotPersisted.
func (p *ValkeyPersister) Load(ctx context.Context) (Mutable, error) {
	raw, err := p.client.Do(ctx, p.client.B().Get().Key(p.key).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return Mutable{}, ErrNotPersisted
	}
	if err != nil {
		return Mutable{}, fmt.Errorf("failed to read key %s: %w", p.key, err)
	}

	var m Mutable
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Mutable{}, fmt.Errorf("failed to parse key %s: %w", p.key, err)
	}
	return m, nil
}

// Save overwrites the key with the encoded document.
func (p *ValkeyPersister) Save(ctx context.Context, m Mutable) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := p.client.Do(ctx, p.client.B().Set().Key(p.key).Value(string(data)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to write key %s: %w", p.key, err)
	}
	return nil
}

// Close releases the Valkey connection.
func (p *ValkeyPersister) Close() {
	p.client.Close()
}

// MemoryPersister keeps the last saved document in process.
type MemoryPersister struct {
	mu    sync.Mutex
	saved *Mutable
}

// NewMemoryPersister creates an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Load returns the last saved document or ErrNotPersisted.
func (p *MemoryPersister) Load(_ context.Context) (Mutable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved == nil {
		return Mutable{}, ErrNotPersisted
	}
	return *p.saved, nil
}

// Save records m.
func (p *MemoryPersister) Save(_ context.Context, m Mutable) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = &m
	return nil
}

// NewPersister builds the Persister selected by cfg.
func NewPersister(cfg StateConfig) (Persister, error) {
	switch cfg.Type {
	case StateFile, "":
		return NewFilePersister(cfg.File), nil
	case StateValkey:
		return NewValkeyPersister(cfg.Valkey)
	case StateMemory:
		return NewMemoryPersister(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported state type %q", ErrInvalidConfig, cfg.Type)
	}
}
