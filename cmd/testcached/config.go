// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"io/ioutil"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v2"

	"github.com/diffeo/go-testcache/backend"
	"github.com/diffeo/go-testcache/restclient"
	"github.com/diffeo/go-testcache/testcache"
)

// options holds the daemon configuration.  The mapstructure tags name
// the keys of the YAML configuration file, for instance
//
//     backend: sqlite3:/var/lib/testcached.db
//     ttl: 360h
//     remote:
//       token: abc123
//       timeout: 10s
//     settings:
//       jiraUrl: https://jira.example.com
type options struct {
	Backend     backend.Backend    `mapstructure:"backend"`
	HTTP        string             `mapstructure:"http"`
	LogLevel    string             `mapstructure:"log_level"`
	LogRequests bool               `mapstructure:"log_requests"`
	TTL         time.Duration      `mapstructure:"ttl"`
	LogCapacity int                `mapstructure:"log_capacity"`
	Remote      restclient.Config  `mapstructure:"remote"`
	Settings    testcache.Settings `mapstructure:"settings"`
}

// fromFlags copies command-line flag values into opts.
func (opts *options) fromFlags(c *cli.Context) {
	opts.HTTP = c.String("http")
	opts.LogLevel = c.String("log-level")
	opts.LogRequests = c.Bool("log-requests")
	opts.TTL = c.Duration("ttl")
	opts.LogCapacity = c.Int("log-capacity")
	opts.Remote.Token = c.String("token")
	opts.Remote.Username = c.String("username")
	opts.Remote.Password = c.String("password")
	opts.Remote.Cookie = c.String("cookie")
	opts.Remote.DownloadDir = c.String("download-dir")
	opts.Remote.Timeout = c.Duration("timeout")
	opts.Settings.JiraURL = c.String("jira-url")
}

// merge fills in values from a configuration file for every flag the
// user did not set.
func (opts *options) merge(c *cli.Context, file options) {
	fromFile := func(flag string, isZero bool, apply func()) {
		if !c.IsSet(flag) && !isZero {
			apply()
		}
	}
	fromFile("backend", file.Backend.Implementation == "", func() { opts.Backend = file.Backend })
	fromFile("http", file.HTTP == "", func() { opts.HTTP = file.HTTP })
	fromFile("log-level", file.LogLevel == "", func() { opts.LogLevel = file.LogLevel })
	fromFile("log-requests", !file.LogRequests, func() { opts.LogRequests = true })
	fromFile("ttl", file.TTL == 0, func() { opts.TTL = file.TTL })
	fromFile("log-capacity", file.LogCapacity == 0, func() { opts.LogCapacity = file.LogCapacity })
	fromFile("token", file.Remote.Token == "", func() { opts.Remote.Token = file.Remote.Token })
	fromFile("username", file.Remote.Username == "", func() { opts.Remote.Username = file.Remote.Username })
	fromFile("password", file.Remote.Password == "", func() { opts.Remote.Password = file.Remote.Password })
	fromFile("cookie", file.Remote.Cookie == "", func() { opts.Remote.Cookie = file.Remote.Cookie })
	fromFile("download-dir", file.Remote.DownloadDir == "", func() { opts.Remote.DownloadDir = file.Remote.DownloadDir })
	fromFile("timeout", file.Remote.Timeout == 0, func() { opts.Remote.Timeout = file.Remote.Timeout })
	fromFile("jira-url", file.Settings.JiraURL == "", func() { opts.Settings.JiraURL = file.Settings.JiraURL })
	// These have no flags
	opts.Settings.ConfluenceURL = file.Settings.ConfluenceURL
	opts.Settings.TestCasePrefix = file.Settings.TestCasePrefix
	opts.Settings.TestRunPrefix = file.Settings.TestRunPrefix
}

// backendHook decodes "impl:address" strings into backend.Backend.
func backendHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(backend.Backend{}) {
		return data, nil
	}
	var b backend.Backend
	err := b.Set(data.(string))
	return b, err
}

func loadConfigYaml(filename string) (options, error) {
	var result options
	var raw map[string]interface{}
	bytes, err := ioutil.ReadFile(filename)
	if err == nil {
		err = yaml.Unmarshal(bytes, &raw)
	}
	var decoder *mapstructure.Decoder
	if err == nil {
		decoder, err = mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				backendHook,
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result: &result,
		})
	}
	if err == nil {
		err = decoder.Decode(raw)
	}
	return result, err
}
