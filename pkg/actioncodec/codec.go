// Package actioncodec encodes pool action payloads for the queue.
// Payloads are msgpack so numeric fields survive the trip without
// float precision loss.
package actioncodec

import (
	"github.com/fox-one/msgpack"
)

// Marshal encode an action payload
func Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decode an action payload
func Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
