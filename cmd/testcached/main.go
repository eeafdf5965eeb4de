// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Testcached is the test-result cache daemon.  It sits between the
// wiki-page collaborators that show test results and the remote
// test-management API, coalescing and caching the remote lookups, and
// publishes the cache service over HTTP.
//
// Usage:
//
//     testcached --backend sqlite3:/var/lib/testcached.db \
//         --jira-url https://jira.example.com --token "$TOKEN"
//
// Every flag may also come from the environment or from a YAML file
// named by --config; flags win over the file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/diffeo/go-testcache/backend"
	"github.com/diffeo/go-testcache/eventlog"
	"github.com/diffeo/go-testcache/restclient"
	"github.com/diffeo/go-testcache/service"
	"github.com/diffeo/go-testcache/testcache"
)

// version is set at link time.
var version = "dev"

// observeInterval is how often the metrics gauges are refreshed.
const observeInterval = 15 * time.Second

func newApp(run func(options) error) *cli.App {
	opts := defaultOptions()
	app := cli.NewApp()
	app.Name = "testcached"
	app.Usage = "cache remote test results for wiki page collaborators"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.GenericFlag{
			Name:   "backend",
			Value:  &opts.Backend,
			Usage:  "impl[:address] of the cache storage",
			EnvVar: "TESTCACHED_BACKEND",
		},
		cli.StringFlag{
			Name:   "http",
			Value:  opts.HTTP,
			Usage:  "[ip]:port for HTTP REST interface",
			EnvVar: "TESTCACHED_HTTP",
		},
		cli.StringFlag{
			Name:   "config",
			Usage:  "global configuration YAML file",
			EnvVar: "TESTCACHED_CONFIG",
		},
		cli.BoolFlag{
			Name:  "log-requests",
			Usage: "log all requests",
		},
		cli.StringFlag{
			Name:   "log-level",
			Value:  opts.LogLevel,
			Usage:  "minimum level of log messages",
			EnvVar: "TESTCACHED_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   "jira-url",
			Usage:  "base URL of the remote test-management system",
			EnvVar: "TESTCACHED_JIRA_URL",
		},
		cli.StringFlag{
			Name:   "token",
			Usage:  "bearer token for the remote system",
			EnvVar: "TESTCACHED_TOKEN",
		},
		cli.StringFlag{
			Name:   "username",
			Usage:  "basic authentication user for the remote system",
			EnvVar: "TESTCACHED_USERNAME",
		},
		cli.StringFlag{
			Name:   "password",
			Usage:  "basic authentication password for the remote system",
			EnvVar: "TESTCACHED_PASSWORD",
		},
		cli.StringFlag{
			Name:   "cookie",
			Usage:  "session cookie to send to the remote system",
			EnvVar: "TESTCACHED_COOKIE",
		},
		cli.StringFlag{
			Name:   "download-dir",
			Usage:  "directory to save downloaded attachments in",
			EnvVar: "TESTCACHED_DOWNLOAD_DIR",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: opts.Remote.Timeout,
			Usage: "time limit on each remote request",
		},
		cli.DurationFlag{
			Name:  "ttl",
			Value: opts.TTL,
			Usage: "maximum age of a cached entry",
		},
		cli.IntFlag{
			Name:  "log-capacity",
			Value: opts.LogCapacity,
			Usage: "number of cache events to remember",
		},
	}
	app.Action = func(c *cli.Context) error {
		opts.fromFlags(c)
		if path := c.String("config"); path != "" {
			file, err := loadConfigYaml(path)
			if err != nil {
				return err
			}
			opts.merge(c, file)
		}
		return run(*opts)
	}
	return app
}

func main() {
	app := newApp(serve)
	if err := app.Run(os.Args); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("testcached failed")
	}
}

// serve runs the daemon until it is interrupted.
func serve(opts options) error {
	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	logger := logrus.StandardLogger()
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := opts.Backend.Store(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"err":     err,
			"backend": opts.Backend.String(),
		}).Error("Could not create cache storage")
		return err
	}
	defer store.Close()

	remote, err := restclient.New(opts.Remote)
	if err != nil {
		return err
	}

	svc, err := service.New(ctx, service.Config{
		Store:       store,
		Remote:      remote,
		TTL:         opts.TTL,
		LogCapacity: opts.LogCapacity,
		Logger:      logger,
		Version:     version,
		Settings:    opts.Settings,
	})
	if err != nil {
		return err
	}

	metrics := newMetrics()
	metrics.MustRegister(nil)
	metrics.Watch(svc.Log())
	go metrics.Observe(ctx, svc, observeInterval)

	server := &HTTP{
		svc:         svc,
		laddr:       opts.HTTP,
		logRequests: opts.LogRequests,
		logger:      logger,
	}
	err = server.Serve(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if flushErr := svc.Flush(flushCtx); flushErr != nil {
		logger.WithError(flushErr).Warn("cache not fully persisted")
	}
	logger.Info("testcached stopped")
	return err
}

func defaultOptions() *options {
	return &options{
		Backend:     backend.Backend{Implementation: "memory"},
		HTTP:        ":5980",
		LogLevel:    "info",
		TTL:         testcache.DefaultTTL,
		LogCapacity: eventlog.DefaultCapacity,
		Remote: restclient.Config{
			Timeout: 30 * time.Second,
		},
	}
}
