package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
	"github.com/fulldump/box"
	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/fulldump/ndmf/database"
	"github.com/fulldump/ndmf/metrics"
	"github.com/fulldump/ndmf/ndmf"
	"github.com/fulldump/ndmf/service"
)

func TestInterceptors(t *testing.T) {

	biff.Alternative("Setup", func(a *biff.A) {

		p := metrics.New()
		db := database.NewDatabase(&database.Config{
			Dir:     t.TempDir(),
			Layout:  ndmf.DefaultLayout(),
			Metrics: p,
		})

		logs := &bytes.Buffer{}
		logger := logrus.New()
		logger.SetOutput(logs)
		logger.SetFormatter(&logrus.JSONFormatter{})

		b := Build(service.NewService(db), "test", "", "", p.Handler())
		b.WithInterceptors(
			AccessLog(logger),
			InterceptorUnavailable(db),
			RecoverFromPanic,
			PrettyErrorInterceptor,
		)
		b.Resource("/panic").WithActions(box.Get(func(ctx context.Context) {
			panic("boom")
		}))

		api := apitest.NewWithHandler(b)

		a.Alternative("Unavailable while opening", func(a *biff.A) {
			resp := api.Request("GET", "/v1/maps").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusServiceUnavailable)
		})

		a.Alternative("Operating", func(a *biff.A) {
			biff.AssertNil(db.Load())

			a.Alternative("Access log", func(a *biff.A) {
				resp := api.Request("GET", "/v1/maps").
					WithHeader("X-Request-Id", "my-request").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqual(resp.Header.Get("X-Request-Id"), "my-request")
				biff.AssertTrue(strings.Contains(logs.String(), `"request_id":"my-request"`))
				biff.AssertTrue(strings.Contains(logs.String(), `"status":200`))
			})

			a.Alternative("Request id generated", func(a *biff.A) {
				resp := api.Request("GET", "/v1/maps").Do()
				biff.AssertEqual(len(resp.Header.Get("X-Request-Id")), 36)
			})

			a.Alternative("Recover from panic", func(a *biff.A) {
				resp := api.Request("GET", "/panic").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusInternalServerError)
				biff.AssertEqualJson(resp.BodyJson(), map[string]any{
					"error": map[string]any{
						"message":     "panic: boom",
						"description": "Unexpected error",
					},
				})
			})

			a.Alternative("Metrics", func(a *biff.A) {
				api.Request("POST", "/v1/maps").WithBodyJson(map[string]any{"name": "users"}).Do()
				api.Request("PUT", "/v1/maps/users/entries/alice").WithBodyString("x").Do()

				resp := api.Request("GET", "/metrics").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertTrue(strings.Contains(resp.BodyString(), `ndmf_operations_total{map="users",op="upsert",result="ok"} 1`))
				biff.AssertTrue(strings.Contains(resp.BodyString(), `ndmf_blocks{map="users",state="used"} 2`))
			})
		})
	})
}

func TestCompression(t *testing.T) {

	b := box.NewBox()
	b.WithInterceptors(Compression)
	b.Resource("/hello").WithActions(box.Get(func() string {
		return strings.Repeat("hello ", 100)
	}))

	api := apitest.NewWithHandler(b)

	resp := api.Request("GET", "/hello").
		WithHeader("Accept-Encoding", "gzip").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusOK)
	biff.AssertEqual(resp.Header.Get("Content-Encoding"), "gzip")

	r, err := gzip.NewReader(bytes.NewReader(resp.BodyBytes()))
	biff.AssertNil(err)
	body, err := io.ReadAll(r)
	biff.AssertNil(err)
	biff.AssertTrue(strings.Contains(string(body), "hello hello"))
}
