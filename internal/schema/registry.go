// Package schema loads and caches named JSON Schema documents from a
// schema directory.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrSchemaNotFound indicates no document exists under the given name.
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrSchemaMalformed indicates the document is not valid JSON.
	ErrSchemaMalformed = errors.New("schema malformed")
	// ErrSchemaEmpty indicates the document parsed to nothing usable.
	ErrSchemaEmpty = errors.New("schema empty")
)

// DefaultDir is the conventional schema directory.
const DefaultDir = "schemas"

// Document is a named, immutable JSON Schema document.
type Document struct {
	// Name is the filename key the document was loaded under.
	Name string
	// Raw is the document's JSON source.
	Raw []byte
	// Fingerprint is an xxhash of Raw, used to detect on-disk changes.
	Fingerprint uint64
}

// Decode unmarshals the document into a generic map. Each call returns
// a fresh value so callers cannot corrupt the cached document.
func (d *Document) Decode() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(d.Raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaMalformed, d.Name, err)
	}
	return out, nil
}

// Registry resolves schema documents by exact filename key. Loads are
// cached for the lifetime of the process, but a document whose file
// changes on disk is re-read rather than served stale.
type Registry struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Document
}

// NewRegistry creates a registry rooted at dir. An empty dir falls
// back to DefaultDir.
func NewRegistry(dir string) *Registry {
	if dir == "" {
		dir = DefaultDir
	}
	return &Registry{
		dir:   dir,
		cache: make(map[string]*Document),
	}
}

// Dir returns the registry's schema directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Load resolves the document stored under name. Lookup is by exact
// name; there is no wildcard or version resolution.
func (r *Registry) Load(name string) (*Document, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
		}
		return nil, fmt.Errorf("reading schema %s: %w", name, err)
	}

	sum := xxhash.Sum64(data)

	r.mu.RLock()
	cached, ok := r.cache[name]
	r.mu.RUnlock()
	if ok && cached.Fingerprint == sum {
		return cached, nil
	}

	doc, err := parse(name, data, sum)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[name] = doc
	r.mu.Unlock()

	return doc, nil
}

func parse(name string, data []byte, sum uint64) (*Document, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaMalformed, name, err)
	}

	switch v := decoded.(type) {
	case nil:
		return nil, fmt.Errorf("%w: %s", ErrSchemaEmpty, name)
	case map[string]any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrSchemaEmpty, name)
		}
	default:
		// A schema document must be a JSON object; booleans, numbers
		// and arrays cannot describe a response contract here.
		return nil, fmt.Errorf("%w: %s: expected object, got %T", ErrSchemaMalformed, name, v)
	}

	return &Document{Name: name, Raw: data, Fingerprint: sum}, nil
}
