// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"encoding/base64"
)

// urlSafe reports whether c may appear unescaped in an encoded name.
// These are the RFC 3986 section 2.3 "unreserved" characters, less
// "~", plus ":".
func urlSafe(c rune) bool {
	switch {
	case c == '-', c == '.', c == '_', c == ':':
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return false
}

// MaybeEncodeName examines a name, such as a test-run key, and if it
// cannot be directly inserted into a URL path as-is, base64 encodes
// it.  The encoded name begins with - and uses the URL-safe base64
// alphabet with no padding.
func MaybeEncodeName(name string) string {
	// The empty name and names starting with "-" are ambiguous
	// and always encoded
	safe := name != "" && name[0] != '-'
	for _, c := range name {
		if !safe {
			break
		}
		safe = urlSafe(c)
	}
	if safe {
		return name
	}
	return "-" + base64.RawURLEncoding.EncodeToString([]byte(name))
}

// MaybeDecodeName reverses MaybeEncodeName.  Returns an error if name
// begins with - and the remainder is not valid base64.
func MaybeDecodeName(name string) (string, error) {
	if len(name) == 0 || name[0] != '-' {
		return name, nil
	}
	bytes, err := base64.RawURLEncoding.DecodeString(name[1:])
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
