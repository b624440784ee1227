package serde

import "encoding/json"

var _ Serde[struct{}] = jsonSerde[struct{}]{}

type jsonSerde[T any] struct{}

// JSON returns a Serde encoding values as JSON. The topic argument is
// ignored; the encoding does not depend on where the payload travels.
func JSON[T any]() Serde[T] {
	return jsonSerde[T]{}
}

func (s jsonSerde[T]) Serialise(_ string, value T) ([]byte, error) {
	return json.Marshal(value)
}

func (s jsonSerde[T]) Deserialise(_ string, data []byte) (T, error) {
	var result T
	err := json.Unmarshal(data, &result)
	return result, err
}
