// Package codec turns typed values into the opaque byte payloads the stores
// persist, and back. Stores never interpret values; everything that knows a
// value's shape lives here.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
