package common

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-account-creator/pkg/solana"
)

// ErrInvalidKeypair is returned when a key pair file cannot be used to sign.
var ErrInvalidKeypair = errors.New("invalid keypair")

// Account is an address, optionally paired with the private key that
// controls it.
type Account struct {
	publicKey  *Key
	privateKey *Key // Optional
}

func NewAccountFromPublicKey(publicKey *Key) (*Account, error) {
	account := &Account{
		publicKey: publicKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPublicKeyString(publicKey string) (*Account, error) {
	key, err := NewKeyFromString(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPrivateKey(privateKey *Key) (*Account, error) {
	if err := privateKey.Validate(); err != nil {
		return nil, err
	}
	if privateKey.IsPublic() {
		return nil, errors.New("private key isn't private")
	}

	publicKeyBytes := ed25519.PrivateKey(privateKey.ToBytes()).Public().(ed25519.PublicKey)
	publicKey, err := NewKeyFromBytes(publicKeyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "error creating public key from private key")
	}

	account := &Account{
		publicKey:  publicKey,
		privateKey: privateKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPrivateKeyBytes(privateKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

// NewAccountFromKeypairJSON parses a key pair in the Solana CLI format: a
// JSON array of 64 bytes holding the secret half followed by the public half.
func NewAccountFromKeypairJSON(data []byte) (*Account, error) {
	var raw []byte
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(ErrInvalidKeypair, "expected a json array of bytes")
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(ErrInvalidKeypair, "expected %d bytes, got %d", ed25519.PrivateKeySize, len(values))
	}

	raw = make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Wrapf(ErrInvalidKeypair, "value out of range at index %d", i)
		}
		raw[i] = byte(v)
	}

	// The stored public half must be the one derived from the secret, and
	// it must be a usable signing key.
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived, raw) {
		return nil, errors.Wrap(ErrInvalidKeypair, "public key does not match secret key")
	}
	if !solana.IsOnCurve(raw[ed25519.SeedSize:]) {
		return nil, errors.Wrap(ErrInvalidKeypair, "public key is not on the curve")
	}

	account, err := NewAccountFromPrivateKeyBytes(raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKeypair, err.Error())
	}
	return account, nil
}

func NewRandomAccount() (*Account, error) {
	key, err := NewRandomKey()
	if err != nil {
		return nil, err
	}

	account, err := NewAccountFromPrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid account")
	}

	return account, nil
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

func (a *Account) Sign(message []byte) ([]byte, error) {
	if a.privateKey == nil {
		return nil, errors.New("private key not available")
	}

	signature := ed25519.Sign(a.privateKey.ToBytes(), message)
	return signature, nil
}

// ToSeededAccount returns the account derived from a with the seed and
// owner program.
func (a *Account) ToSeededAccount(seed string, owner *Account) (*Account, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating base account")
	}
	if err := owner.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating owner account")
	}

	address, err := solana.CreateWithSeed(a.PublicKey().ToBytes(), seed, owner.PublicKey().ToBytes())
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKeyBytes(address)
}

func (a *Account) IsOnCurve() bool {
	return solana.IsOnCurve(a.PublicKey().ToBytes())
}

// Zero clears the private key, if any. The account can no longer sign
// afterwards.
func (a *Account) Zero() {
	if a == nil || a.privateKey == nil {
		return
	}

	a.privateKey.Zero()
	a.privateKey = nil
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if err := a.PublicKey().Validate(); err != nil {
		return errors.Wrap(err, "error validating public key")
	}

	if !a.PublicKey().IsPublic() {
		return errors.New("public key isn't public")
	}

	// Private keys are optional
	if a.privateKey == nil {
		return nil
	}

	if err := a.privateKey.Validate(); err != nil {
		return errors.Wrap(err, "error validating private key")
	}

	if a.privateKey.IsPublic() {
		return errors.New("private key isn't private")
	}

	expectedPublicKey := ed25519.PrivateKey(a.privateKey.ToBytes()).Public().(ed25519.PublicKey)
	if !bytes.Equal(a.PublicKey().ToBytes(), expectedPublicKey) {
		return errors.New("private key doesn't map to public key")
	}

	return nil
}

func (a *Account) String() string {
	return a.PublicKey().ToBase58()
}
