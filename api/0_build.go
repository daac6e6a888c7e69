package api

import (
	"context"
	"net/http"

	"github.com/fulldump/box"
	"github.com/fulldump/box/boxopenapi"

	"github.com/fulldump/ndmf/api/apimapv1"
	"github.com/fulldump/ndmf/service"
)

// Build mounts the v1 API. A nil metrics handler disables /metrics.
func Build(s service.Servicer, version, apiKey, apiSecret string, metrics http.Handler) *box.B {

	b := box.NewBox()

	v1 := b.Resource("/v1")
	v1.WithInterceptors(
		box.SetResponseHeader("Content-Type", "application/json"),
		Authenticate(apiKey, apiSecret),
	)

	apimapv1.BuildV1Map(v1, s).
		WithInterceptors(
			injectServicer(s),
		)

	b.Resource("/v1/*").
		WithActions(box.AnyMethod(func(w http.ResponseWriter) interface{} {
			w.WriteHeader(http.StatusNotImplemented)
			return PrettyError{
				Message:     "not implemented",
				Description: "this endpoint does not exist, please check the documentation",
			}
		}))

	b.Resource("/release").
		WithActions(box.Get(func() string {
			return version
		}))

	if metrics != nil {
		b.Resource("/metrics").
			WithActions(box.Get(func(w http.ResponseWriter, r *http.Request) {
				metrics.ServeHTTP(w, r)
			}))
	}

	spec := boxopenapi.Spec(b)
	spec.Info.Title = "NDMF"
	spec.Info.Description = "Named data maps stored in block structured files."
	b.Resource("/openapi.json").
		WithActions(box.Get(func(r *http.Request) any {

			spec.Servers = []boxopenapi.Server{
				{
					Url: "https://" + r.Host,
				},
				{
					Url: "http://" + r.Host,
				},
			}

			return spec
		}))

	return b
}

func injectServicer(s service.Servicer) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(apimapv1.SetServicer(ctx, s))
		}
	}
}
