package ndmf

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fulldump/ndmf/compression"
)

type Options[K comparable, V any] struct {
	Layout      Layout
	Names       NameCodec[K]
	Values      DataCodec[V]
	Registry    *compression.Registry
	// Compression is the method id new records are written with, the zero
	// value is compression.IdNone
	Compression byte
	Metrics     Metrics
	Logger      logrus.FieldLogger
}

// File is a Named Data Map File: named records stored in blocks of a single
// file. All methods are serialized by one mutex.
type File[K comparable, V any] struct {
	mutex   sync.Mutex
	path    string
	options Options[K, V]
	method  compression.Method
	file    *os.File
	store   *blockStore
	dir     *directory
	cache   map[string]*dataSegment[V]
	cloner  ValueCloner[V]
}

// Open opens or creates the file at path. A new file is one block long,
// block 0 being an empty index segment.
func Open[K comparable, V any](path string, options Options[K, V]) (*File[K, V], error) {

	if options.Names == nil || options.Values == nil {
		return nil, fmt.Errorf("name and value codecs are mandatory")
	}
	if options.Layout.NameSize == 0 {
		options.Layout.NameSize = options.Names.Size()
	}
	if options.Layout.NameSize != options.Names.Size() {
		return nil, fmt.Errorf("%w: name size %d but codec uses %d", ErrInvalidLayout, options.Layout.NameSize, options.Names.Size())
	}
	if err := options.Layout.Validate(); err != nil {
		return nil, err
	}
	if options.Registry == nil {
		options.Registry = compression.NewRegistry()
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	logger := options.Logger.WithField("file", path)
	options.Logger = logger

	method, err := options.Registry.Lookup(options.Compression)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	m, err := load(f, path, options, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	m.method = method
	m.cloner, _ = options.Values.(ValueCloner[V])

	return m, nil
}

func load[K comparable, V any](f *os.File, path string, options Options[K, V], logger logrus.FieldLogger) (*File[K, V], error) {

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	layout := options.Layout
	store := newBlockStore(f, layout)

	size := info.Size()
	if size == 0 {
		if err := f.Truncate(int64(layout.BlockSize)); err != nil {
			return nil, fmt.Errorf("initialize file: %w", err)
		}
		if err := store.writeHeader(0, int32(layout.BlockSize)); err != nil {
			return nil, fmt.Errorf("initialize file: %w", err)
		}
		size = int64(layout.BlockSize)
		logger.Debug("file initialized")
	}

	t0 := time.Now()
	if err := store.load(size); err != nil {
		return nil, err
	}

	dir, err := loadDirectory(store, logger)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"blocks":  store.blocks(),
		"free":    store.freeBlocks(),
		"entries": dir.Len(),
		"took":    time.Since(t0),
	}).Debug("file loaded")

	return &File[K, V]{
		path:    path,
		options: options,
		file:    f,
		store:   store,
		dir:     dir,
		cache:   map[string]*dataSegment[V]{},
	}, nil
}

func (m *File[K, V]) Path() string {
	return m.path
}

func (m *File[K, V]) observe(operation string, t0 time.Time, err *error) {
	metrics := m.options.Metrics
	if metrics == nil {
		return
	}
	metrics.ObserveOperation(m.path, operation, time.Since(t0), *err)
	if m.store != nil {
		metrics.RecordBlocks(m.path, int(m.store.blocks()), m.store.freeBlocks())
	}
}

func (m *File[K, V]) key(name K) (string, error) {
	if m.file == nil {
		return "", ErrClosed
	}
	b, err := m.options.Names.MarshalName(name)
	if err != nil {
		return "", err
	}
	size := m.options.Layout.NameSize
	if len(b) > size {
		return "", fmt.Errorf("%w: %d bytes, max %d", ErrNameTooLong, len(b), size)
	}
	k := make([]byte, size)
	copy(k, b)
	return string(k), nil
}

func (m *File[K, V]) Has(name K) (found bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("has", time.Now(), &err)

	key, err := m.key(name)
	if err != nil {
		return false, err
	}

	return m.dir.Contains(key)
}

// Get returns the value stored under name, found is false if there is none
func (m *File[K, V]) Get(name K) (value V, found bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("get", time.Now(), &err)

	key, err := m.key(name)
	if err != nil {
		return value, false, err
	}

	pointer, found, err := m.dir.Lookup(key)
	if err != nil || !found {
		return value, false, err
	}

	d, loaded, err := m.segmentAt(key, pointer)
	if err != nil {
		return value, false, err
	}
	if loaded {
		return m.cloner.Clone(d.value), true, nil
	}

	value, err = d.readData(m.options.Values, m.options.Registry)
	if err != nil {
		return value, false, err
	}
	m.keep(key, d)

	return value, true, nil
}

// keep caches d under key. The cached value is a private copy, or nothing
// when the codec can not clone values.
func (m *File[K, V]) keep(key string, d *dataSegment[V]) {
	if m.cloner == nil {
		var zero V
		d.value = zero
		d.loaded = false
	} else {
		d.value = m.cloner.Clone(d.value)
		d.loaded = true
	}
	m.cache[key] = d
}

// segmentAt returns the data segment at pointer and whether its value is
// already in memory
func (m *File[K, V]) segmentAt(key string, pointer int32) (*dataSegment[V], bool, error) {
	if d, cached := m.cache[key]; cached {
		if d.allocated && d.start == pointer {
			return d, d.loaded, nil
		}
		delete(m.cache, key)
	}
	d, err := openDataSegment[V](m.store, pointer)
	return d, false, err
}

// Put stores value under name and returns the previous one
func (m *File[K, V]) Put(name K, value V) (previous V, existed bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("put", time.Now(), &err)

	return m.write(name, value, true)
}

// Set stores value under name without reading the previous one
func (m *File[K, V]) Set(name K, value V) (err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("set", time.Now(), &err)

	_, _, err = m.write(name, value, false)
	return err
}

// Upsert stores value under name and reports whether it replaced a record,
// the previous value is never read
func (m *File[K, V]) Upsert(name K, value V) (existed bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("upsert", time.Now(), &err)

	_, existed, err = m.write(name, value, false)
	return existed, err
}

func (m *File[K, V]) write(name K, value V, readPrevious bool) (previous V, existed bool, err error) {

	key, err := m.key(name)
	if err != nil {
		return previous, false, err
	}

	pointer, found, err := m.dir.Lookup(key)
	if err != nil {
		return previous, false, err
	}

	if !found {
		d := newDataSegment(m.store, value)
		if err := d.writeData(m.options.Values, m.method); err != nil {
			return previous, false, err
		}
		if _, _, err := m.dir.Insert(key, d.start); err != nil {
			return previous, false, err
		}
		m.keep(key, d)
		return previous, false, nil
	}

	d, loaded, err := m.segmentAt(key, pointer)
	if err != nil {
		return previous, false, err
	}
	if readPrevious {
		if loaded {
			previous = d.value
		} else if previous, err = d.readData(m.options.Values, m.options.Registry); err != nil {
			return previous, false, err
		}
	}

	d.value = value
	if err := d.writeData(m.options.Values, m.method); err != nil {
		delete(m.cache, key)
		return previous, true, err
	}
	if d.start != pointer {
		if _, _, err := m.dir.Insert(key, d.start); err != nil {
			delete(m.cache, key)
			return previous, true, err
		}
	}
	m.keep(key, d)

	return previous, true, nil
}

// Remove frees the record stored under name and returns its value
func (m *File[K, V]) Remove(name K) (previous V, existed bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("remove", time.Now(), &err)

	return m.remove(name, true)
}

// Delete frees the record stored under name without reading it
func (m *File[K, V]) Delete(name K) (existed bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("delete", time.Now(), &err)

	_, existed, err = m.remove(name, false)
	return existed, err
}

func (m *File[K, V]) remove(name K, readPrevious bool) (previous V, existed bool, err error) {

	key, err := m.key(name)
	if err != nil {
		return previous, false, err
	}

	pointer, found, err := m.dir.Lookup(key)
	if err != nil || !found {
		return previous, false, err
	}

	d, loaded, err := m.segmentAt(key, pointer)
	if err != nil {
		return previous, false, err
	}
	if readPrevious {
		if loaded {
			previous = d.value
		} else if previous, err = d.readData(m.options.Values, m.options.Registry); err != nil {
			return previous, false, err
		}
	}

	delete(m.cache, key)
	if err := d.free(); err != nil {
		return previous, true, err
	}
	if _, _, err := m.dir.Remove(key); err != nil {
		return previous, true, err
	}

	return previous, true, nil
}

func (m *File[K, V]) Len() (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.file == nil {
		return 0, ErrClosed
	}
	return m.dir.Len(), nil
}

// Directory exposes name to data block mapping, for tooling
func (m *File[K, V]) Directory() (map[K]int32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.file == nil {
		return nil, ErrClosed
	}

	entries := map[string]int32{}
	m.dir.Range(func(key string, pointer int32) bool {
		entries[key] = pointer
		return true
	})

	result := make(map[K]int32, len(entries))
	for key, pointer := range entries {
		name, err := m.options.Names.UnmarshalName([]byte(key))
		if err != nil {
			return nil, fmt.Errorf("decode name at block %d: %w", pointer, err)
		}
		result[name] = pointer
	}

	return result, nil
}

// Range calls f for every record following the directory order until f
// returns false. f must not call methods of m.
func (m *File[K, V]) Range(f func(name K, value V) bool) (err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("range", time.Now(), &err)

	if m.file == nil {
		return ErrClosed
	}

	type entry struct {
		key     string
		pointer int32
	}
	entries := []entry{}
	m.dir.Range(func(key string, pointer int32) bool {
		entries = append(entries, entry{key, pointer})
		return true
	})

	for _, e := range entries {
		name, err := m.options.Names.UnmarshalName([]byte(e.key))
		if err != nil {
			return err
		}
		d, loaded, err := m.segmentAt(e.key, e.pointer)
		if err != nil {
			return err
		}
		var value V
		if loaded {
			value = m.cloner.Clone(d.value)
		} else {
			if value, err = d.readData(m.options.Values, m.options.Registry); err != nil {
				return err
			}
			m.keep(e.key, d)
		}
		if !f(name, value) {
			return nil
		}
	}

	return nil
}

func (m *File[K, V]) Stats() (Stats, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.file == nil {
		return Stats{}, ErrClosed
	}

	return Stats{
		BlockSize:     m.options.Layout.BlockSize,
		Blocks:        int(m.store.blocks()),
		FreeBlocks:    m.store.freeBlocks(),
		FileSize:      m.options.Layout.offset(m.store.blocks()),
		Entries:       m.dir.Len(),
		IndexSegments: m.dir.segmentCount(),
		Cached:        len(m.cache),
	}, nil
}

// Verify checks the file on disk while holding the lock, no operation can run
// meanwhile
func (m *File[K, V]) Verify() (report *Report, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	defer m.observe("verify", time.Now(), &err)

	if m.file == nil {
		return nil, ErrClosed
	}
	return Verify(m.path, m.options.Layout, m.options.Registry)
}

func (m *File[K, V]) Sync() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.file == nil {
		return ErrClosed
	}
	return m.file.Sync()
}

// Close drops every in-memory structure and closes the file
func (m *File[K, V]) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.file == nil {
		return ErrClosed
	}

	err := m.file.Close()
	m.file = nil
	m.store = nil
	m.dir = nil
	m.cache = nil

	return err
}
