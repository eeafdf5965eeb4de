// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ugorji/go/codec"

	"github.com/diffeo/go-testcache/restclient"
	"github.com/diffeo/go-testcache/testcache"
)

// normalizeURL trims whitespace and trailing slashes from a URL and
// checks that it is an absolute http or https URL.
func normalizeURL(raw string) (string, error) {
	normalized := strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(normalized)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", testcache.ErrBadURL
	}
	return normalized, nil
}

// Settings returns the current remote connection settings.
func (s *Service) Settings() testcache.Settings {
	s.settingsLock.RLock()
	defer s.settingsLock.RUnlock()
	return s.settings
}

// UpdateSettings validates and saves new settings, and points the
// remote client at the new endpoint.  The Jira URL is required; the
// Confluence URL is checked only if given.  Both lose any trailing
// slashes.
func (s *Service) UpdateSettings(ctx context.Context, settings testcache.Settings) (testcache.Settings, error) {
	var err error
	settings.JiraURL, err = normalizeURL(settings.JiraURL)
	if err != nil {
		return testcache.Settings{}, err
	}
	if strings.TrimSpace(settings.ConfluenceURL) != "" {
		settings.ConfluenceURL, err = normalizeURL(settings.ConfluenceURL)
		if err != nil {
			return testcache.Settings{}, err
		}
	} else {
		settings.ConfluenceURL = ""
	}
	settings.TestCasePrefix = strings.TrimSpace(settings.TestCasePrefix)
	settings.TestRunPrefix = strings.TrimSpace(settings.TestRunPrefix)

	var data []byte
	err = codec.NewEncoderBytes(&data, &codec.JsonHandle{}).Encode(settings)
	if err != nil {
		return testcache.Settings{}, err
	}
	err = s.cfg.Store.Set(ctx, testcache.SettingsStoreKey, data)
	if err != nil {
		return testcache.Settings{}, err
	}

	s.apply(settings)
	s.cfg.Logger.WithField("jiraUrl", settings.JiraURL).Info("settings updated")
	return settings, nil
}

// TestConnection checks that the remote at baseURL is reachable and
// accepts the service's credentials, returning the authenticated
// user.  A 401 or 403 answer is reported as testcache.ErrUnauthorized.
func (s *Service) TestConnection(ctx context.Context, baseURL string) (testcache.User, error) {
	normalized, err := normalizeURL(baseURL)
	if err != nil {
		return testcache.User{}, err
	}
	user, err := s.cfg.Remote.Probe(ctx, normalized)
	var httpErr restclient.ErrorHTTP
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return user, testcache.ErrUnauthorized
		}
	}
	return user, err
}

// loadSettings restores saved settings, falling back to the
// configured defaults.
func (s *Service) loadSettings(ctx context.Context) {
	settings := s.cfg.Settings
	data, found, err := s.cfg.Store.Get(ctx, testcache.SettingsStoreKey)
	if err != nil {
		s.cfg.Logger.WithError(err).Warn("could not load settings")
	} else if found {
		var saved testcache.Settings
		err = codec.NewDecoderBytes(data, &codec.JsonHandle{}).Decode(&saved)
		if err != nil {
			s.cfg.Logger.WithError(err).Warn("ignoring unreadable settings")
		} else {
			settings = saved
		}
	}
	s.apply(settings)
}

// apply installs settings and points the remote at the Jira URL.
// Both happen under settingsLock so concurrent updates cannot leave
// the remote on a different endpoint than Settings reports.
func (s *Service) apply(settings testcache.Settings) {
	s.settingsLock.Lock()
	defer s.settingsLock.Unlock()
	s.settings = settings
	if settings.JiraURL != "" {
		s.cfg.Remote.SetBaseURL(settings.JiraURL)
	}
}
