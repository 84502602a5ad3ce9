package primemap

import (
	"encoding/json"
	"fmt"
)

var (
	jsonMarshal   func(v any) ([]byte, error)
	jsonUnmarshal func(data []byte, v any) error
)

// SetDefaultJSONMarshal sets the default JSON serialization and deserialization functions.
// If not set, the standard library is used by default.
func SetDefaultJSONMarshal(marshal func(v any) ([]byte, error), unmarshal func(data []byte, v any) error) {
	jsonMarshal, jsonUnmarshal = marshal, unmarshal
}

func marshalMap[K ~string, V any](m map[K]V) ([]byte, error) {
	if jsonMarshal != nil {
		return jsonMarshal(m)
	}
	return json.Marshal(m)
}

func unmarshalMap[K ~string, V any](data []byte) (map[K]V, error) {
	var a map[K]V
	var err error
	if jsonUnmarshal != nil {
		err = jsonUnmarshal(data, &a)
	} else {
		err = json.Unmarshal(data, &a)
	}
	if err != nil {
		return nil, fmt.Errorf("primemap: decode entries: %w", err)
	}
	return a, nil
}
