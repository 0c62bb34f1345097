package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	// MaxSeedLength is the longest seed accepted by address derivation.
	MaxSeedLength = 32
)

var (
	ErrSeedTooLong      = errors.New("max seed length exceeded")
	ErrIllegalOwner     = errors.New("illegal owner")
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// pdaMarker is appended to program derived address preimages. An owner
// ending with it could be used to forge such an address.
var pdaMarker = []byte("ProgramDerivedAddress")

// CreateWithSeed mirrors the implementation of the Solana SDK's
// Pubkey::create_with_seed.
//
// The derived address is sha256(base || seed || owner). The seed is used
// as raw bytes, without any normalization.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L136
func CreateWithSeed(base ed25519.PublicKey, seed string, owner ed25519.PublicKey) (ed25519.PublicKey, error) {
	if len(seed) > MaxSeedLength {
		return nil, ErrSeedTooLong
	}
	if len(base) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidPublicKey, "base")
	}
	if len(owner) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidPublicKey, "owner")
	}

	if bytes.HasSuffix(owner, pdaMarker) {
		return nil, ErrIllegalOwner
	}

	h := sha256.New()
	for _, v := range [][]byte{base, []byte(seed), owner} {
		if _, err := h.Write(v); err != nil {
			return nil, errors.Wrap(err, "failed to hash seed")
		}
	}

	return h.Sum(nil), nil
}

// IsOnCurve reports whether pub is a valid compressed ed25519 point, and
// therefore could have a corresponding private key.
//
// The edwards25519.ExtendedGroupElement is internal to the golang.org/x/crypto
// library, so we rely on a deprecated open source alternative.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L182-L187
func IsOnCurve(pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}

	var point [32]byte
	copy(point[:], pub)

	var A edwards25519.ExtendedGroupElement
	return A.FromBytes(&point)
}
