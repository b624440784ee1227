package serde

import (
	"google.golang.org/protobuf/proto"
)

type protobufSerde[T proto.Message] struct{}

func Protobuf[T proto.Message]() Serde[T] {
	return protobufSerde[T]{}
}

func (s protobufSerde[T]) Serialise(_ string, value T) ([]byte, error) {
	return proto.Marshal(value)
}

func (s protobufSerde[T]) Deserialise(_ string, data []byte) (T, error) {
	// T is a pointer type; allocate through the message's reflective type so
	// unmarshalling never targets a typed nil.
	var zero T
	msg := zero.ProtoReflect().New().Interface().(T)
	err := proto.Unmarshal(data, msg)
	return msg, err
}
