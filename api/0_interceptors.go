package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fulldump/box"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func RecoverFromPanic(next box.H) box.H {
	return func(ctx context.Context) {
		defer func() {
			if err := recover(); err != nil {
				logrus.WithField("panic", err).Error(string(debug.Stack()))
				writeError(box.GetResponse(ctx), http.StatusInternalServerError, fmt.Errorf("panic: %v", err), "Unexpected error")
			}
		}()
		next(ctx)
	}
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// AccessLog logs one line per request and tags the response with an
// X-Request-Id, reusing the one sent by the client
func AccessLog(l logrus.FieldLogger) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			r := box.GetRequest(ctx)
			c := box.GetBoxContext(ctx)

			requestId := r.Header.Get("X-Request-Id")
			if requestId == "" {
				requestId = uuid.New().String()
			}
			c.Response.Header().Set("X-Request-Id", requestId)

			w := &statusResponseWriter{ResponseWriter: c.Response}
			c.Response = w

			now := time.Now()
			defer func() {
				status := w.status
				if status == 0 {
					status = http.StatusOK
				}
				l.WithFields(logrus.Fields{
					"request_id": requestId,
					"remote":     formatRemoteAddr(r),
					"method":     r.Method,
					"url":        r.URL.String(),
					"status":     status,
					"took":       time.Since(now),
				}).Info("access")
			}()

			next(ctx)
		}
	}
}

func formatRemoteAddr(r *http.Request) string {
	xorigin := strings.TrimSpace(strings.Split(
		r.Header.Get("X-Forwarded-For"), ",")[0])
	if xorigin != "" {
		return xorigin
	}

	i := strings.LastIndex(r.RemoteAddr, ":")
	if i < 0 {
		return r.RemoteAddr
	}
	return r.RemoteAddr[0:i]
}
