package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/ndmf/database"
)

type PrettyError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (p PrettyError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"error": struct {
			Message     string `json:"message"`
			Description string `json:"description"`
		}{
			p.Message,
			p.Description,
		},
	})
}

func (p PrettyError) MarshalTo(w io.Writer) error {
	return json.NewEncoder(w).Encode(p)
}

func InterceptorUnavailable(db *database.Database) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {

			status := db.GetStatus()
			if status == database.StatusOpening {
				box.GetResponse(ctx).WriteHeader(http.StatusServiceUnavailable)
				box.SetError(ctx, fmt.Errorf("temporary unavailable: opening"))
				return
			}
			if status == database.StatusClosing {
				box.GetResponse(ctx).WriteHeader(http.StatusServiceUnavailable)
				box.SetError(ctx, fmt.Errorf("temporary unavailable: closing"))
				return
			}
			next(ctx)
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error, description string) {
	w.WriteHeader(status)
	PrettyError{
		Message:     err.Error(),
		Description: description,
	}.MarshalTo(w)
}

func PrettyErrorInterceptor(next box.H) box.H {
	return func(ctx context.Context) {

		next(ctx)

		err := box.GetError(ctx)
		if err == nil {
			return
		}
		w := box.GetResponse(ctx)

		if err == ErrUnauthorized {
			writeError(w, http.StatusUnauthorized, err, "user is not authenticated")
			return
		}

		if err == box.ErrResourceNotFound {
			writeError(w, http.StatusNotFound, err, fmt.Sprintf("resource '%s' not found", box.GetRequest(ctx).URL.String()))
			return
		}

		if err == box.ErrMethodNotAllowed {
			writeError(w, http.StatusMethodNotAllowed, err, fmt.Sprintf("method '%s' not allowed", box.GetRequest(ctx).Method))
			return
		}

		if _, ok := err.(*json.SyntaxError); ok {
			writeError(w, http.StatusBadRequest, err, "Malformed JSON")
			return
		}

		writeError(w, http.StatusInternalServerError, err, "Unexpected error")
	}
}
