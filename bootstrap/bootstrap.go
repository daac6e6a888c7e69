package bootstrap

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fulldump/box"
	"github.com/sirupsen/logrus"

	"github.com/fulldump/ndmf/api"
	"github.com/fulldump/ndmf/compression"
	"github.com/fulldump/ndmf/configuration"
	"github.com/fulldump/ndmf/database"
	"github.com/fulldump/ndmf/metrics"
	"github.com/fulldump/ndmf/ndmf"
	"github.com/fulldump/ndmf/service"
)

var VERSION = "dev"

// NewLogger builds the process logger from the configured level
func NewLogger(c *configuration.Configuration) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		l.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}

// NewDatabase translates the configuration into a database config
func NewDatabase(c *configuration.Configuration, m *metrics.Prometheus, l logrus.FieldLogger) (*database.Database, error) {

	layout := ndmf.Layout{
		BlockSize:        c.BlockSize,
		NameSize:         c.NameSize,
		IndexSegmentSize: c.IndexSegmentSize,
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	method, err := compression.NewRegistry().LookupName(c.Compression)
	if err != nil {
		return nil, err
	}

	config := &database.Config{
		Dir:         c.Dir,
		Layout:      layout,
		Compression: method.ID(),
		Logger:      l,
	}
	if m != nil {
		config.Metrics = m
	}

	return database.NewDatabase(config), nil
}

func Bootstrap(c *configuration.Configuration) (start, stop func()) {

	l := NewLogger(c)
	m := metrics.New()

	db, err := NewDatabase(c, m, l)
	if err != nil {
		l.WithError(err).Fatal("invalid configuration")
	}

	b := api.Build(service.NewService(db), VERSION, c.ApiKey, c.ApiSecret, m.Handler())
	if c.EnableCompression {
		b.WithInterceptors(api.Compression)
	}
	b.WithInterceptors(
		api.AccessLog(l),
		api.InterceptorUnavailable(db),
		api.RecoverFromPanic,
		api.PrettyErrorInterceptor,
	)

	s := &http.Server{
		Addr:    c.HttpAddr,
		Handler: box.Box2Http(b),
	}

	if c.HttpsSelfsigned {
		l.Info("HTTPS Selfsigned")
		cert, err := selfSignedCertificate()
		if err != nil {
			l.WithError(err).Fatal("self signed certificate")
		}
		s.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
		}
	}

	ln, err := net.Listen("tcp", c.HttpAddr)
	if err != nil {
		l.WithError(err).Fatal("listen")
	}
	l.WithField("addr", c.HttpAddr).Info("listening")

	stop = func() {
		db.Stop()
		s.Shutdown(context.Background())
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		for {
			sig := <-signalChan
			l.WithField("signal", sig.String()).Info("signal received")
			stop()
		}
	}()

	start = func() {

		wg := &sync.WaitGroup{}

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Start()
			if err != nil {
				l.WithError(err).Error("database")
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if c.HttpsEnabled {
				err = s.ServeTLS(ln, "", "")
			} else {
				err = s.Serve(ln)
			}
			if err != nil && err != http.ErrServerClosed {
				l.WithError(err).Error("http server")
			}
		}()

		wg.Wait()
	}

	return
}
