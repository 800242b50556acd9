package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

var _ connect.Codec = Codec{}

// Codec encodes messages as plain JSON. It is registered under the "json"
// name so both handlers and clients negotiate application/json.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
