// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"reflect"

	"github.com/ugorji/go/codec"
)

// snapshotHandle returns the codec settings for persisted snapshots.
// Untyped nested objects decode as string-keyed maps so that they
// re-encode as the same JSON.
func snapshotHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

func encodeSnapshot(v interface{}) ([]byte, error) {
	var out []byte
	err := codec.NewEncoderBytes(&out, snapshotHandle()).Encode(v)
	return out, err
}

func decodeSnapshot(data []byte, out interface{}) error {
	return codec.NewDecoderBytes(data, snapshotHandle()).Decode(out)
}
