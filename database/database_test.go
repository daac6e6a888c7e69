package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulldump/biff"
	"github.com/sirupsen/logrus"

	"github.com/fulldump/ndmf/ndmf"
)

func newTestDatabase(dir string) *Database {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	return NewDatabase(&Config{
		Dir: dir,
		Layout: ndmf.Layout{
			BlockSize:        256,
			NameSize:         16,
			IndexSegmentSize: 1024,
		},
		Logger: logger,
	})
}

func TestDatabase(t *testing.T) {

	biff.Alternative("Empty database", func(a *biff.A) {
		dir := t.TempDir()
		db := newTestDatabase(dir)
		biff.AssertEqual(db.GetStatus(), StatusOpening)
		biff.AssertNil(db.Load())
		biff.AssertEqual(db.GetStatus(), StatusOperating)
		biff.AssertEqual(db.ListMaps(), []string{})

		a.Alternative("Create map", func(a *biff.A) {
			m, err := db.CreateMap("users")
			biff.AssertNil(err)
			biff.AssertNil(m.Set("alice", []byte("admin")))

			_, err = os.Stat(filepath.Join(dir, "users.ndmf"))
			biff.AssertNil(err)
			biff.AssertEqual(db.ListMaps(), []string{"users"})

			a.Alternative("Already exists", func(a *biff.A) {
				_, err := db.CreateMap("users")
				biff.AssertEqual(err, ErrMapAlreadyExists)
			})

			a.Alternative("Get map", func(a *biff.A) {
				m, err := db.GetMap("users")
				biff.AssertNil(err)
				value, found, err := m.Get("alice")
				biff.AssertNil(err)
				biff.AssertTrue(found)
				biff.AssertEqual(string(value), "admin")
			})

			a.Alternative("Reload", func(a *biff.A) {
				biff.AssertNil(db.Stop())

				db := newTestDatabase(dir)
				biff.AssertNil(db.Load())
				defer db.Stop()

				biff.AssertEqual(db.ListMaps(), []string{"users"})
				m, err := db.GetMap("users")
				biff.AssertNil(err)
				value, _, _ := m.Get("alice")
				biff.AssertEqual(string(value), "admin")
			})

			a.Alternative("Drop map", func(a *biff.A) {
				biff.AssertNil(db.DropMap("users"))

				_, err := os.Stat(filepath.Join(dir, "users.ndmf"))
				biff.AssertTrue(os.IsNotExist(err))

				_, err = db.GetMap("users")
				biff.AssertEqual(err, ErrMapNotFound)
				biff.AssertEqual(db.DropMap("users"), ErrMapNotFound)

				// the handle is closed
				_, _, err = m.Get("alice")
				biff.AssertEqual(err, ndmf.ErrClosed)
			})
		})

		a.Alternative("Invalid names", func(a *biff.A) {
			for _, name := range []string{"", ".hidden", "a/b", `a\b`, "a:b"} {
				_, err := db.CreateMap(name)
				biff.AssertTrue(errors.Is(err, ErrInvalidMapName))
			}
		})

		a.Alternative("Stop twice", func(a *biff.A) {
			biff.AssertNil(db.Stop())
			biff.AssertNil(db.Stop())
			biff.AssertEqual(db.GetStatus(), StatusClosing)
		})
	})
}

func TestDatabase_LoadSkipsForeignFiles(t *testing.T) {

	dir := t.TempDir()
	biff.AssertNil(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0666))
	biff.AssertNil(os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	biff.AssertNil(os.WriteFile(filepath.Join(dir, "nested", "inner.ndmf"), nil, 0666))

	db := newTestDatabase(dir)
	biff.AssertNil(db.Load())
	defer db.Stop()

	biff.AssertEqual(db.ListMaps(), []string{})
}

func TestDatabase_LoadCorrupt(t *testing.T) {

	dir := t.TempDir()

	// root index segment with a size that cannot hold two slots
	block := make([]byte, 256)
	block[3] = 8
	biff.AssertNil(os.WriteFile(filepath.Join(dir, "broken.ndmf"), block, 0666))

	db := newTestDatabase(dir)
	err := db.Load()
	biff.AssertTrue(errors.Is(err, ndmf.ErrCorrupt))
	biff.AssertEqual(db.GetStatus(), StatusClosing)
}
