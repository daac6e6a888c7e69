package apimapv1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fulldump/ndmf/service"
)

func deleteEntry(ctx context.Context, w http.ResponseWriter) error {

	m, err := lookupMap(ctx)
	if err != nil {
		return err
	}

	name := entryName(ctx)
	existed, err := m.Delete(name)
	if err != nil {
		return entryError(w, err)
	}
	if !existed {
		w.WriteHeader(http.StatusNotFound)
		return fmt.Errorf("%w: '%s'", service.ErrorEntryNotFound, name)
	}

	w.WriteHeader(http.StatusOK)
	return nil
}
