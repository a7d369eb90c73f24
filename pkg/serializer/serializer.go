// Package serializer defines the codec contract fincore uses wherever it
// persists or hands off payloads it does not interpret.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/quantfabric/fincore/pkg/faults"
)

// Serializer converts values to bytes and back. Implementations must be
// lossless: Deserialize(Serialize(v)) yields a value equal to v.
type Serializer[T any] interface {
	Serialize(v T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

type jsonSerializer[T any] struct{}

var _ Serializer[struct{}] = jsonSerializer[struct{}]{}

// JSON returns a Serializer backed by encoding/json. Number-bearing types
// should marshal through string forms, as financial.Financial does, so the
// round trip stays exact at any magnitude.
func JSON[T any]() Serializer[T] {
	return jsonSerializer[T]{}
}

func (jsonSerializer[T]) Serialize(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}
	return data, nil
}

func (jsonSerializer[T]) Deserialize(data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, faults.Argumentf("payload is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("deserialize payload: %w", err)
	}
	return v, nil
}
