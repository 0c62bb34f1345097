// Package binary contains helpers for reading and writing little endian,
// bincode compatible instruction payloads.
//
// Each helper writes to (or reads from) the start of the provided slice and
// advances offset by the number of bytes consumed.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
)

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst, src[:ed25519.PublicKeySize])
	*offset += ed25519.PublicKeySize
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst, v)
	*offset += 8
}

func PutUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst, v)
	*offset += 4
}

// PutString writes a bincode string: a u64 length prefix followed by the
// raw bytes.
func PutString(dst []byte, v string, offset *int) {
	binary.LittleEndian.PutUint64(dst, uint64(len(v)))
	copy(dst[8:], v)
	*offset += 8 + len(v)
}

// StringSize is the number of bytes PutString writes for v.
func StringSize(v string) int {
	return 8 + len(v)
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src)
	*offset += ed25519.PublicKeySize
}

func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src)
	*offset += 8
}

func GetUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src)
	*offset += 4
}

// GetString reads a bincode string. ok is false if src is too short to
// hold the encoded length.
func GetString(src []byte, dst *string, offset *int) (ok bool) {
	if len(src) < 8 {
		return false
	}

	size := binary.LittleEndian.Uint64(src)
	if size > uint64(len(src)-8) {
		return false
	}

	*dst = string(src[8 : 8+size])
	*offset += 8 + int(size)
	return true
}
