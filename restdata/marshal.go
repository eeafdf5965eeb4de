// Copyright 2015 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"io"
	"mime"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/ugorji/go/codec"
)

// JSONHandle returns the codec settings used on the wire.  Untyped
// objects decode as string-keyed maps, so they can be re-encoded as
// the same JSON or fed to mapstructure.
func JSONHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

// Decode tries to decode a restdata object from a reader, such as an
// HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType == "" {
		// RFC 7231 section 3.1.1.5
		// We could also consider http.DetectContentType()
		contentType = "application/octet-stream"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return err
	}

	// Every JSON spelling decodes as the current JSON format
	switch mediaType {
	case "text/json", "application/json", JSONMediaType, V1JSONMediaType:
		return codec.NewDecoder(r, JSONHandle()).Decode(out)
	default:
		return ErrUnsupportedMediaType{Type: mediaType}
	}
}

// Encode writes v to w as JSON.
func Encode(w io.Writer, v interface{}) error {
	return codec.NewEncoder(w, JSONHandle()).Encode(v)
}

// DecodeMessage converts a decoded JSON object into a Message.
// Unknown keys are ignored so that envelopes may carry extra fields.
func DecodeMessage(raw map[string]interface{}) (Message, error) {
	var msg Message
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &msg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return msg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return msg, ErrBadRequest{Err: err}
	}
	if msg.Action == "" {
		return msg, ErrUnknownAction{}
	}
	return msg, nil
}
