// Package serde provides typed serialisers and deserialisers for record
// payloads. The processing loop itself never inspects payloads; serdes are
// consumed by observers that want typed batches (see observer.Typed).
package serde

type Serde[T any] interface {
	Serialiser[T]
	Deserialiser[T]
}

type Serialiser[T any] interface {
	Serialise(topic string, value T) ([]byte, error)
}

type Deserialiser[T any] interface {
	Deserialise(topic string, data []byte) (T, error)
}
