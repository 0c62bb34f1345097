package shortvec

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// maxEncodedBytes is the longest valid compact-u16 encoding.
const maxEncodedBytes = 3

var (
	ErrLengthTooLarge  = fmt.Errorf("len exceeds %d", math.MaxUint16)
	ErrInvalidEncoding = errors.New("invalid shortvec encoding")
)

// EncodeLen encodes the specified len into the writer.
//
// If len > math.MaxUint16, ErrLengthTooLarge is returned.
func EncodeLen(w io.Writer, len int) (n int, err error) {
	if len < 0 || len > math.MaxUint16 {
		return 0, ErrLengthTooLarge
	}

	written := 0
	valBuf := make([]byte, 1)

	for {
		valBuf[0] = byte(len & 0x7f)
		len >>= 7
		if len == 0 {
			n, err := w.Write(valBuf)
			written += n

			return written, err
		}

		valBuf[0] |= 0x80
		n, err := w.Write(valBuf)
		written += n
		if err != nil {
			return written, err
		}
	}
}

// DecodeLen decodes a shortvec encoded len from the reader.
//
// Encodings longer than three bytes, or that decode to a value above
// math.MaxUint16, return ErrInvalidEncoding.
func DecodeLen(r io.Reader) (val int, err error) {
	var offset int
	valBuf := make([]byte, 1)

	for {
		if offset >= maxEncodedBytes {
			return 0, fmt.Errorf("%w: size exceeds %d bytes", ErrInvalidEncoding, maxEncodedBytes)
		}

		if _, err := io.ReadFull(r, valBuf); err != nil {
			return 0, err
		}

		val |= int(valBuf[0]&0x7f) << (offset * 7)
		offset++

		if valBuf[0]&0x80 == 0 {
			break
		}
	}

	if val > math.MaxUint16 {
		return 0, fmt.Errorf("%w: value %d exceeds %d", ErrInvalidEncoding, val, math.MaxUint16)
	}

	return val, nil
}
