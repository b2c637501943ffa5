package panel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/arming-scheduler/internal/config"
)

// FileCache persists key-value pairs to a JSON object on disk.
// JSON is produced and consumed via protojson over a structpb.Struct,
// so arbitrary keys survive restarts without a fixed schema.
type FileCache struct {
	// path is the filesystem location of the JSON file.
	path string
	// mu protects the file and the in-memory copy.
	mu sync.Mutex
	// values is loaded lazily on first access.
	values *structpb.Struct
}

var errNotBool = errors.New("cache value is not a boolean")

// NewFileCache creates a cache that reads/writes JSON at the provided path.
func NewFileCache(path string) *FileCache {
	return &FileCache{
		path: filepath.Clean(path),
	}
}

// GetBool returns the boolean stored under key.
func (c *FileCache) GetBool(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return false, err
	}

	value, ok := c.values.GetFields()[key]
	if !ok {
		return false, ErrNotFound
	}

	b, ok := value.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %s", errNotBool, key)
	}

	return b.BoolValue, nil
}

// SetBool stores value under key and rewrites the file.
func (c *FileCache) SetBool(_ context.Context, key string, value bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return err
	}

	// The in-memory copy changes only after the file is written.
	next, _ := proto.Clone(c.values).(*structpb.Struct)
	if next.Fields == nil {
		next.Fields = make(map[string]*structpb.Value)
	}

	next.Fields[key] = structpb.NewBoolValue(value)

	data, err := protojson.MarshalOptions{Multiline: true, Indent: "    "}.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if err = os.WriteFile(c.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}

	c.values = next

	return nil
}

// load reads the file once; a missing file is an empty cache.
func (c *FileCache) load() error {
	if c.values != nil {
		return nil
	}

	values := &structpb.Struct{Fields: make(map[string]*structpb.Value)}

	contents, err := os.ReadFile(c.path)

	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read cache file: %w", err)
	default:
		if err = protojson.Unmarshal(contents, values); err != nil {
			return fmt.Errorf("decode cache file: %w", err)
		}

		if values.Fields == nil {
			values.Fields = make(map[string]*structpb.Value)
		}
	}

	c.values = values

	return nil
}
