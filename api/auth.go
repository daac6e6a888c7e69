package api

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/fulldump/box"
)

var ErrUnauthorized = errors.New("unauthorized")

// Authenticate requires X-Api-Key and X-Api-Secret headers, an empty apiKey
// disables it
func Authenticate(apiKey, apiSecret string) box.I {
	return func(next box.H) box.H {
		if apiKey == "" {
			return next
		}
		return func(ctx context.Context) {
			r := box.GetRequest(ctx)

			key := r.Header.Get("X-Api-Key")
			secret := r.Header.Get("X-Api-Secret")

			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 ||
				subtle.ConstantTimeCompare([]byte(secret), []byte(apiSecret)) != 1 {
				box.SetError(ctx, ErrUnauthorized)
				return
			}

			next(ctx)
		}
	}
}
