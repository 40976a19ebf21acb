package apiclient

import (
	json "github.com/goccy/go-json"
)

// Marshal serializes v to a JSON string, wrapping failures in
// *SerializationError.
func Marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", &SerializationError{Op: "marshal", Err: err}
	}
	return string(data), nil
}

// Unmarshal deserializes JSON data into v, wrapping failures in
// *SerializationError.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &SerializationError{Op: "unmarshal", Err: err}
	}
	return nil
}

// encodeBody turns a spec body into wire bytes plus a content type tag.
// Strings pass through as pre-serialized payloads; []byte passes through
// raw; everything else is JSON-encoded.
func encodeBody(body any, contentType string) ([]byte, string, error) {
	if body == nil {
		return nil, contentType, nil
	}

	switch b := body.(type) {
	case string:
		if contentType == "" {
			contentType = "application/json"
		}
		return []byte(b), contentType, nil
	case []byte:
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return b, contentType, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", &SerializationError{Op: "marshal", Err: err}
		}
		if contentType == "" {
			contentType = "application/json"
		}
		return data, contentType, nil
	}
}
