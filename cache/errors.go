package cache

import "github.com/cockroachdb/errors"

// Marker errors classifying failures across the library. The memory engine
// never fails; these kinds originate in the layers around it.
var (
	// errCodec marks serialization or deserialization failures.
	errCodec = errors.New("codec error")
	// errBackend marks failures of an underlying storage medium
	// (network, disk).
	errBackend = errors.New("backend error")
)

// MarkCodec classifies err as a codec (serialization) failure.
func MarkCodec(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, errCodec)
}

// IsCodec reports whether err is a codec failure.
func IsCodec(err error) bool {
	return errors.Is(err, errCodec)
}

// MarkBackend classifies err as a storage backend failure.
func MarkBackend(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, errBackend)
}

// IsBackend reports whether err is a storage backend failure.
func IsBackend(err error) bool {
	return errors.Is(err, errBackend)
}
