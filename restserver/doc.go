// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver publishes a cache service as a REST service.
//
// The complete REST API is defined in the restdata package.  In
// particular, note that the URLs described here are not actually part
// of the API; clients should start from the root document.
//
// HTTP Considerations
//
// This interface does not support HTTP caching or authentication
// headers.  Requests that carry a body must send a JSON Content-Type:.
//
// MIME Types
//
// This interface understands MIME types as follows:
//
//     application/vnd.diffeo.testcache.v1+json
//
// JSON representation of version 1 of this interface.
//
//     application/vnd.diffeo.testcache+json
//     application/json
//     text/json
//
// JSON representation of latest version of this interface.
//
// URL Scheme
//
// Test runs and test cases are addressed by key.  If a key is not
// URL-safe printable ASCII, it must be base64 encoded using the
// URL-safe alphabet (RFC 4648 section 5), with no padding, and adding
// an additional - at the front of the name; see
// restdata.MaybeEncodeName.
//
// The following URLs are defined:
//
//     /
//     /testrun/{run}
//     /testrun/{run}/result/{case}
//     /testrun/{run}/prefetch
//     /cache
//     /cache/log
//     /attachment/{id}/download
//     /user
//     /settings
//     /settings/test
//     /message
package restserver
