package compression

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var ErrUnknownMethod = errors.New("unknown compression method")
var ErrAlreadyRegistered = errors.New("compression id already registered")

// Method is a pair of stream transforms identified by one byte on disk.
type Method interface {
	ID() byte
	Name() string
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

type Registry struct {
	mutex   sync.RWMutex
	methods map[byte]Method
}

// NewRegistry returns a registry with all the built-in methods registered
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, m := range builtins {
		r.methods[m.ID()] = m
	}
	return r
}

func NewEmptyRegistry() *Registry {
	return &Registry{
		methods: map[byte]Method{},
	}
}

func (r *Registry) Register(m Method) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.methods[m.ID()]
	if exists {
		if existing == m {
			return nil
		}
		return fmt.Errorf("%w: %d (%s)", ErrAlreadyRegistered, m.ID(), existing.Name())
	}

	r.methods[m.ID()] = m
	return nil
}

func (r *Registry) Lookup(id byte) (Method, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	m, exists := r.methods[id]
	if !exists {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownMethod, id)
	}
	return m, nil
}

func (r *Registry) LookupName(name string) (Method, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, m := range r.methods {
		if m.Name() == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: '%s'", ErrUnknownMethod, name)
}

// Methods returns registered methods sorted by id
func (r *Registry) Methods() []Method {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Method, 0, len(r.methods))
	for _, m := range r.methods {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID() < result[j].ID()
	})
	return result
}
