package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fulldump/ndmf/ndmf"
	"github.com/fulldump/ndmf/utils"
)

const (
	StatusOpening   = "opening"
	StatusOperating = "operating"
	StatusClosing   = "closing"
)

// Extension of the files loaded as maps
const Extension = ".ndmf"

var (
	ErrMapNotFound      = errors.New("map not found")
	ErrMapAlreadyExists = errors.New("map already exists")
	ErrInvalidMapName   = errors.New("invalid map name")
)

type Config struct {
	Dir         string
	Layout      ndmf.Layout
	Compression byte
	Metrics     ndmf.Metrics
	Logger      logrus.FieldLogger
}

// Map is a named data map with string names and raw values
type Map = ndmf.File[string, []byte]

type Database struct {
	Config *Config
	status string
	mutex  sync.RWMutex
	maps   map[string]*Map
	exit   chan struct{}
	stop   sync.Once
}

func NewDatabase(config *Config) *Database {
	if config.Layout == (ndmf.Layout{}) {
		config.Layout = ndmf.DefaultLayout()
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	return &Database{
		Config: config,
		status: StatusOpening,
		maps:   map[string]*Map{},
		exit:   make(chan struct{}),
	}
}

func (db *Database) GetStatus() string {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return db.status
}

func (db *Database) setStatus(status string) {
	db.mutex.Lock()
	db.status = status
	db.mutex.Unlock()
}

// ValidateName accepts names usable as a file name inside Dir
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\:`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: '%s'", ErrInvalidMapName, name)
	}
	return nil
}

func (db *Database) filename(name string) string {
	return filepath.Join(db.Config.Dir, name+Extension)
}

func (db *Database) open(filename string) (*Map, error) {
	return ndmf.Open(filename, ndmf.Options[string, []byte]{
		Layout:      db.Config.Layout,
		Names:       ndmf.StringNames(db.Config.Layout.NameSize),
		Values:      ndmf.Bytes,
		Compression: db.Config.Compression,
		Metrics:     db.Config.Metrics,
		Logger:      db.Config.Logger,
	})
}

func (db *Database) CreateMap(name string) (*Map, error) {

	if err := ValidateName(name); err != nil {
		return nil, err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, exists := db.maps[name]; exists {
		return nil, ErrMapAlreadyExists
	}

	m, err := db.open(db.filename(name))
	if err != nil {
		return nil, err
	}
	db.maps[name] = m

	db.Config.Logger.WithField("map", name).Info("map created")

	return m, nil
}

func (db *Database) GetMap(name string) (*Map, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	m, exists := db.maps[name]
	if !exists {
		return nil, ErrMapNotFound
	}
	return m, nil
}

// ListMaps returns the map names sorted
func (db *Database) ListMaps() []string {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return utils.GetKeys(db.maps)
}

// DropMap closes the map and removes its file
func (db *Database) DropMap(name string) error {

	db.mutex.Lock()
	defer db.mutex.Unlock()

	m, exists := db.maps[name]
	if !exists {
		return ErrMapNotFound
	}
	delete(db.maps, name)

	if err := m.Close(); err != nil && err != ndmf.ErrClosed {
		return fmt.Errorf("close map '%s': %w", name, err)
	}
	if err := os.Remove(m.Path()); err != nil {
		return fmt.Errorf("remove map '%s': %w", name, err)
	}
	if f, ok := db.Config.Metrics.(interface{ Forget(path string) }); ok {
		f.Forget(m.Path())
	}

	db.Config.Logger.WithField("map", name).Info("map dropped")

	return nil
}

// Load opens every map file found in Dir
func (db *Database) Load() error {

	dir := db.Config.Dir
	logger := db.Config.Logger.WithField("dir", dir)
	logger.Info("loading database")

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		db.setStatus(StatusClosing)
		return err
	}

	t0 := time.Now()
	err = filepath.WalkDir(dir, func(filename string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filename == dir {
				return nil
			}
			return fs.SkipDir
		}
		if filepath.Ext(filename) != Extension {
			return nil
		}

		name := strings.TrimSuffix(d.Name(), Extension)
		if err := ValidateName(name); err != nil {
			logger.WithField("file", filename).Warn("skipping file with invalid map name")
			return nil
		}

		t1 := time.Now()
		m, err := db.open(filename)
		if err != nil {
			logger.WithError(err).WithField("map", name).Error("open map")
			return fmt.Errorf("open map '%s': %w", name, err)
		}
		entries, _ := m.Len()
		logger.WithFields(logrus.Fields{
			"map":     name,
			"entries": entries,
			"took":    time.Since(t1),
		}).Info("map loaded")

		db.mutex.Lock()
		db.maps[name] = m
		db.mutex.Unlock()

		return nil
	})

	if err != nil {
		db.setStatus(StatusClosing)
		return err
	}

	logger.WithField("maps", len(db.ListMaps())).WithField("took", time.Since(t0)).Info("database ready")
	db.setStatus(StatusOperating)

	return nil
}

// Start loads the database in background and blocks until Stop
func (db *Database) Start() error {

	go func() {
		if err := db.Load(); err != nil {
			db.Config.Logger.WithError(err).Error("load database")
		}
	}()

	<-db.exit

	return nil
}

func (db *Database) Stop() error {

	var lastErr error

	db.stop.Do(func() {
		defer close(db.exit)

		db.mutex.Lock()
		defer db.mutex.Unlock()

		db.status = StatusClosing

		for name, m := range db.maps {
			logger := db.Config.Logger.WithField("map", name)
			logger.Info("closing map")
			if err := m.Close(); err != nil && err != ndmf.ErrClosed {
				logger.WithError(err).Error("close map")
				lastErr = err
			}
		}
	})

	return lastErr
}
