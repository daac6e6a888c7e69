package apimapv1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/SierraSoftworks/connor"
)

type directoryEntry struct {
	Name  string `json:"name"`
	Block int32  `json:"block"`
}

// directory streams the name to block mapping, one JSON object per line
func directory(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	requestBody, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	params := struct {
		Filter map[string]interface{}
		Skip   int64
		Limit  int64
	}{
		Filter: map[string]interface{}{},
		Skip:   0,
		Limit:  -1,
	}
	if len(bytes.TrimSpace(requestBody)) > 0 {
		err = json.Unmarshal(requestBody, &params)
		if err != nil {
			return err
		}
	}

	m, err := lookupMap(ctx)
	if err != nil {
		return err
	}

	mapping, err := m.Directory()
	if err != nil {
		return err
	}

	entries := make([]directoryEntry, 0, len(mapping))
	for name, block := range mapping {
		entries = append(entries, directoryEntry{Name: name, Block: block})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Block < entries[j].Block })

	err = writeDirectory(w, entries, params.Filter, params.Skip, params.Limit)
	if errors.Is(err, errFilter) {
		w.WriteHeader(http.StatusBadRequest)
	}
	return err
}

var errFilter = errors.New("bad filter")

// writeDirectory encodes the entries matching filter as JSON lines, it stops
// at the first write error
func writeDirectory(w io.Writer, entries []directoryEntry, filter map[string]interface{}, skip, limit int64) error {

	hasFilter := len(filter) > 0

	e := json.NewEncoder(w)
	for _, entry := range entries {

		if limit == 0 {
			break
		}

		if hasFilter {
			match, err := connor.Match(filter, map[string]interface{}{
				"name":  entry.Name,
				"block": float64(entry.Block),
			})
			if err != nil {
				return fmt.Errorf("%w: %w", errFilter, err)
			}
			if !match {
				continue
			}
		}

		if skip > 0 {
			skip--
			continue
		}

		limit--
		if err := e.Encode(entry); err != nil {
			return fmt.Errorf("write entry: %w", err)
		}
	}

	return nil
}
