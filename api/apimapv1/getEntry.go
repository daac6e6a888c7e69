package apimapv1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fulldump/ndmf/service"
)

func getEntry(ctx context.Context, w http.ResponseWriter) error {

	m, err := lookupMap(ctx)
	if err != nil {
		return err
	}

	name := entryName(ctx)
	value, found, err := m.Get(name)
	if err != nil {
		return entryError(w, err)
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return fmt.Errorf("%w: '%s'", service.ErrorEntryNotFound, name)
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(value)
	return err
}

func headEntry(ctx context.Context, w http.ResponseWriter) error {

	m, err := lookupMap(ctx)
	if err != nil {
		return err
	}

	found, err := m.Has(entryName(ctx))
	if err != nil {
		return entryError(w, err)
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return nil
	}

	w.WriteHeader(http.StatusOK)
	return nil
}
