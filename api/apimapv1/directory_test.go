package apimapv1

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fulldump/biff"
)

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestWriteDirectory(t *testing.T) {

	entries := []directoryEntry{
		{Name: "alice", Block: 1},
		{Name: "bob", Block: 2},
		{Name: "carol", Block: 4},
	}

	biff.Alternative("All entries", func(a *biff.A) {
		output := &bytes.Buffer{}
		err := writeDirectory(output, entries, nil, 0, -1)
		biff.AssertNil(err)
		biff.AssertEqual(output.String(), ""+
			`{"name":"alice","block":1}`+"\n"+
			`{"name":"bob","block":2}`+"\n"+
			`{"name":"carol","block":4}`+"\n")
	})

	biff.Alternative("Filter skip and limit", func(a *biff.A) {
		output := &bytes.Buffer{}
		filter := map[string]interface{}{"block": map[string]interface{}{"$gt": 1}}
		err := writeDirectory(output, entries, filter, 1, 1)
		biff.AssertNil(err)
		biff.AssertEqual(output.String(), `{"name":"carol","block":4}`+"\n")
	})

	biff.Alternative("Broken connection stops the listing", func(a *biff.A) {
		w := &failingWriter{}
		err := writeDirectory(w, entries, nil, 0, -1)
		biff.AssertNotNil(err)
		biff.AssertEqual(w.writes, 1)
	})

	biff.Alternative("Bad filter", func(a *biff.A) {
		filter := map[string]interface{}{"name": map[string]interface{}{"$nope": 1}}
		err := writeDirectory(&bytes.Buffer{}, entries, filter, 0, -1)
		biff.AssertTrue(errors.Is(err, errFilter))
	})
}
