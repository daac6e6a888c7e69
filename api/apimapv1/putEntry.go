package apimapv1

import (
	"context"
	"io"
	"net/http"
)

func putEntry(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	m, err := lookupMap(ctx)
	if err != nil {
		return err
	}

	value, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	existed, err := m.Upsert(entryName(ctx), value)
	if err != nil {
		return entryError(w, err)
	}

	if existed {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusCreated)
	}

	return nil
}
