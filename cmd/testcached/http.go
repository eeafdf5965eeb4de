// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/diffeo/go-testcache/restserver"
	"github.com/diffeo/go-testcache/service"
)

// shutdownGrace bounds how long in-progress requests may run after
// the daemon is told to stop.
const shutdownGrace = 5 * time.Second

// HTTP serves the cache service and metrics over HTTP.
type HTTP struct {
	svc         *service.Service
	laddr       string
	logRequests bool
	logger      *logrus.Logger
}

// Handler builds the complete HTTP handler: the REST interface,
// /metrics, panic recovery and optional request logging.
func (h *HTTP) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	restserver.PopulateRouter(r, h.svc)

	n := negroni.New(negroni.NewRecovery())
	if h.logRequests {
		logger := negroni.NewLogger()
		logger.ALogger = h.logger
		n.Use(logger)
	}
	n.UseHandler(r)
	return n
}

// Serve runs an HTTP server on the configured local address until ctx
// is done, then shuts it down gracefully.
func (h *HTTP) Serve(ctx context.Context) error {
	server := &http.Server{Addr: h.laddr, Handler: h.Handler()}
	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()
	h.logger.WithField("addr", h.laddr).Info("serving HTTP")

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
