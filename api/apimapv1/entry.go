package apimapv1

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/fulldump/box"

	"github.com/fulldump/ndmf/ndmf"
)

func entryName(ctx context.Context) string {
	name := box.GetUrlParameter(ctx, "entryName")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// entryError sets the status code for engine errors caused by the request
func entryError(w http.ResponseWriter, err error) error {
	if errors.Is(err, ndmf.ErrNameTooLong) {
		w.WriteHeader(http.StatusBadRequest)
	}
	return err
}
