package testcache

import "errors"

// ErrNotConfigured is returned by remote operations when no remote
// endpoint has been configured.  It is returned before any network
// access is attempted.
var ErrNotConfigured = errors.New("Remote endpoint is not configured")

// ErrNoTestRunKey is returned when a lookup is requested without a
// test run identifier.
var ErrNoTestRunKey = errors.New("No test run key")

// ErrNoAttachmentID is returned by DownloadAttachment when no
// attachment identifier is given.
var ErrNoAttachmentID = errors.New("No attachment id")

// ErrBadURL is returned when a settings update carries a URL that is
// not an absolute http or https URL.
var ErrBadURL = errors.New("URL must be an absolute http or https URL")

// ErrUnauthorized is returned by connection tests when the remote
// answers 401 or 403.
var ErrUnauthorized = errors.New("Authorization required; log in to the remote system")
