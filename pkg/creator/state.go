package creator

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-account-creator/pkg/solana"
)

// State is the lifecycle state of a creation transaction.
//
// Non terminal states only move forward. Rejected and Dropped are terminal
// and can be entered from any state once the transaction is signed.
type State uint8

const (
	StateUnknown State = iota
	StateBuilt
	StateSigned
	StateSubmitted
	StateProcessed
	StateConfirmed
	StateFinalized
	StateRejected
	StateDropped
)

var ErrInvalidStateTransition = errors.New("invalid state transition")

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateSigned:
		return "signed"
	case StateSubmitted:
		return "submitted"
	case StateProcessed:
		return "processed"
	case StateConfirmed:
		return "confirmed"
	case StateFinalized:
		return "finalized"
	case StateRejected:
		return "rejected"
	case StateDropped:
		return "dropped"
	}
	return "unknown"
}

// IsTerminal reports whether no further transitions are possible from s.
func (s State) IsTerminal() bool {
	return s == StateFinalized || s == StateRejected || s == StateDropped
}

func (s State) canTransitionTo(next State) bool {
	if s.IsTerminal() {
		return false
	}

	switch next {
	case StateRejected:
		return s >= StateSigned
	case StateDropped:
		return s >= StateSubmitted
	case StateUnknown:
		return false
	}

	return next > s
}

// tracker records the state of a single transaction and logs every
// transition.
type tracker struct {
	log   *logrus.Entry
	state State
}

func newTracker(log *logrus.Entry, initial State) *tracker {
	return &tracker{
		log:   log,
		state: initial,
	}
}

// advance moves the tracker to next. Repeating the current state is a no-op.
func (t *tracker) advance(next State) error {
	if next == t.state {
		return nil
	}

	if !t.state.canTransitionTo(next) {
		return errors.Wrapf(ErrInvalidStateTransition, "%s -> %s", t.state, next)
	}

	t.log.WithFields(logrus.Fields{
		"from": t.state.String(),
		"to":   next.String(),
	}).Debug("transaction state changed")

	t.state = next
	return nil
}

// stateForCommitment maps an observed status onto the state machine.
func stateForCommitment(c solana.Commitment) State {
	switch c {
	case solana.CommitmentProcessed:
		return StateProcessed
	case solana.CommitmentConfirmed:
		return StateConfirmed
	case solana.CommitmentFinalized:
		return StateFinalized
	}
	return StateUnknown
}
