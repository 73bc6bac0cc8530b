package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/snappy"

	"github.com/wonny/salescast/pkg/config"
)

// ErrNotFound is returned when an artifact key does not exist
var ErrNotFound = errors.New("artifact not found")

// SnappySuffix marks keys stored as snappy-compressed blocks
const SnappySuffix = ".sz"

// Store reads and writes trained artifacts by key
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the store selected by ARTIFACT_SOURCE, with snappy framing for *.sz keys
func New(ctx context.Context, cfg config.ArtifactConfig) (Store, error) {
	var (
		backend Store
		err     error
	)

	switch cfg.Source {
	case "file":
		backend, err = NewFileStore(cfg.Dir)
	case "s3":
		backend, err = NewS3Store(ctx, cfg.S3)
	default:
		err = fmt.Errorf("unknown artifact source %q", cfg.Source)
	}
	if err != nil {
		return nil, err
	}

	return WithSnappy(backend), nil
}

// WithSnappy wraps a store so keys ending in SnappySuffix are transparently (de)compressed
func WithSnappy(s Store) Store {
	if _, ok := s.(*snappyStore); ok {
		return s
	}
	return &snappyStore{Store: s}
}

type snappyStore struct {
	Store
}

func (s *snappyStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Store.Read(ctx, key)
	if err != nil || !strings.HasSuffix(key, SnappySuffix) {
		return data, err
	}

	decoded, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode %s: %w", key, err)
	}
	return decoded, nil
}

func (s *snappyStore) Write(ctx context.Context, key string, data []byte) error {
	if strings.HasSuffix(key, SnappySuffix) {
		data = snappy.Encode(nil, data)
	}
	return s.Store.Write(ctx, key, data)
}
