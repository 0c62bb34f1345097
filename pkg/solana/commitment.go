package solana

import (
	"strings"

	"github.com/pkg/errors"
)

// Commitment is the level of certainty that a block, and the transactions
// within it, will not be rolled back. Levels are totally ordered from
// CommitmentProcessed to CommitmentFinalized.
//
// Reference: https://docs.solana.com/cluster/commitments
type Commitment uint8

const (
	CommitmentProcessed Commitment = iota
	CommitmentConfirmed
	CommitmentFinalized
)

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var ErrInvalidCommitment = errors.New("invalid commitment")

// commitmentConfig is the wire representation of a commitment, as accepted
// in the config object of most RPC methods.
type commitmentConfig struct {
	Commitment string `json:"commitment"`
}

// ParseCommitment parses a commitment level.
//
// The deprecated names still written by older CLI versions are mapped onto
// their modern equivalents.
func ParseCommitment(s string) (Commitment, error) {
	switch strings.TrimSpace(s) {
	case confirmationStatusProcessed, "recent":
		return CommitmentProcessed, nil
	case confirmationStatusConfirmed, "single", "singleGossip":
		return CommitmentConfirmed, nil
	case confirmationStatusFinalized, "max", "root":
		return CommitmentFinalized, nil
	}

	return 0, errors.Wrapf(ErrInvalidCommitment, "%q", s)
}

// AtLeast reports whether c is as certain as, or more certain than, other.
func (c Commitment) AtLeast(other Commitment) bool {
	return c >= other
}

// Valid reports whether c is one of the three defined levels.
func (c Commitment) Valid() bool {
	return c <= CommitmentFinalized
}

func (c Commitment) String() string {
	switch c {
	case CommitmentProcessed:
		return confirmationStatusProcessed
	case CommitmentConfirmed:
		return confirmationStatusConfirmed
	case CommitmentFinalized:
		return confirmationStatusFinalized
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (c Commitment) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, errors.Wrapf(ErrInvalidCommitment, "%d", c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Commitment) UnmarshalText(text []byte) error {
	parsed, err := ParseCommitment(string(text))
	if err != nil {
		return err
	}

	*c = parsed
	return nil
}

func (c Commitment) config() commitmentConfig {
	return commitmentConfig{Commitment: c.String()}
}
