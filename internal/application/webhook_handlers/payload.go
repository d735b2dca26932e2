package webhook_handlers

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errUnparseablePayload = errors.New("payload is not valid JSON")

// payloadFields decodes the top level of a webhook body. ok is false for valid
// JSON that is not an object. Only bytes that are not JSON at all return an error.
func payloadFields(payload []byte) (fields map[string]json.RawMessage, ok bool, err error) {
	if !json.Valid(payload) {
		return nil, false, errUnparseablePayload
	}
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, false, nil
	}
	return fields, true, nil
}

// stringField returns fields[key] when it is present and holds a JSON string
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
