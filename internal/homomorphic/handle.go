package homomorphic

import (
	"encoding/binary"
	"encoding/hex"
)

// HandleSize is the fixed width of an opaque value handle.
const HandleSize = 32

// Handle is a fixed-size reference to a value that may be cleartext-shadowed
// or truly encrypted. Engine logic never inspects a handle's content; it only
// passes handles to an Evaluator and compares them for identity. The zero
// handle is the "nobody" sentinel used for freshly created auctions.
type Handle [HandleSize]byte

// ZeroHandle is the sentinel for "no value yet".
var ZeroHandle Handle

// IsZero reports whether h is the sentinel handle.
func (h Handle) IsZero() bool {
	return h == ZeroHandle
}

// Equal compares two handles by identity, not by the values they reference.
func (h Handle) Equal(other Handle) bool {
	return h == other
}

func (h Handle) String() string {
	return hex.EncodeToString(h[:8])
}

// HandleFromPlain encodes a cleartext integer directly into a handle.
// This is the plaintext fallback path: the handle carries the value in its
// trailing 8 bytes, big-endian, and provides no privacy.
func HandleFromPlain(v uint64) Handle {
	var h Handle
	binary.BigEndian.PutUint64(h[HandleSize-8:], v)
	return h
}

// PlainFromHandle reinterprets a handle's raw bytes as a cleartext integer.
// Only meaningful for handles produced by HandleFromPlain.
func PlainFromHandle(h Handle) uint64 {
	return binary.BigEndian.Uint64(h[HandleSize-8:])
}

// HandleFromBytes copies up to HandleSize bytes into a handle. Shorter input
// is right-aligned so a bare big-endian integer round-trips through
// PlainFromHandle.
func HandleFromBytes(b []byte) Handle {
	var h Handle
	if len(b) >= HandleSize {
		copy(h[:], b[:HandleSize])
		return h
	}
	copy(h[HandleSize-len(b):], b)
	return h
}
