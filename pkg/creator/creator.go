// Package creator creates Solana accounts funded to the rent exempt minimum.
//
// A run fetches the rent exempt minimum, resolves the address of the new
// account, builds and signs a single system program instruction, then submits
// the transaction and waits for it to reach the configured commitment. Runs
// share nothing but the RPC client, so a Creator may be used concurrently.
package creator

import (
	"context"
	"crypto/ed25519"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-account-creator/pkg/common"
	"github.com/code-payments/solana-account-creator/pkg/metrics"
	"github.com/code-payments/solana-account-creator/pkg/solana"
)

// Creator runs the account creation workflow against a node.
type Creator struct {
	log        *logrus.Entry
	conf       *conf
	client     solana.Client
	commitment solana.Commitment
	rent       *RentOracle
	submitter  *Submitter
}

// Result describes a created account.
type Result struct {
	RunID string

	Address *common.Account
	Owner   *common.Account

	// Base and Seed are only set for seeded accounts.
	Base *common.Account
	Seed string

	Signature  solana.Signature
	Lamports   uint64
	Space      uint64
	Commitment solana.Commitment
}

// Prepared is a signed transaction that has not been submitted yet.
type Prepared struct {
	RunID string
	Mode  CreationMode

	Transaction          solana.Transaction
	LastValidBlockHeight uint64

	Address *common.Account
	Owner   *common.Account
	Base    *common.Account
	Seed    string

	Lamports uint64
	Space    uint64
}

// Signature returns the signature identifying the prepared transaction.
func (p *Prepared) Signature() solana.Signature {
	return p.Transaction.Signature()
}

func New(client solana.Client, commitment solana.Commitment, configProvider ConfigProvider) *Creator {
	return &Creator{
		log:        logrus.StandardLogger().WithField("type", "creator/creator"),
		conf:       configProvider(),
		client:     client,
		commitment: commitment,
		rent:       NewRentOracle(client),
		submitter:  NewSubmitter(client, commitment, configProvider),
	}
}

// Commitment returns the level at which runs are considered complete.
func (c *Creator) Commitment() solana.Commitment {
	return c.commitment
}

// MinimumBalance returns the rent exempt minimum for space bytes.
func (c *Creator) MinimumBalance(ctx context.Context, space uint64) (uint64, error) {
	return c.rent.MinimumBalance(ctx, space)
}

// CreateFreshAccount creates an account of space bytes at a newly generated
// address, funded by funder.
func (c *Creator) CreateFreshAccount(ctx context.Context, funder *common.Account, space uint64) (*Result, error) {
	return c.Create(ctx, funder, Fresh{}, space)
}

// CreateSeededAccount creates an account of space bytes at the address
// derived from base, seed and owner. A nil owner is the system program.
func (c *Creator) CreateSeededAccount(ctx context.Context, funder, base *common.Account, seed string, space uint64, owner *common.Account) (*Result, error) {
	mode, err := NewSeeded(base, seed, owner)
	if err != nil {
		return nil, err
	}
	return c.Create(ctx, funder, mode, space)
}

// Create runs the full workflow for the provided mode. Nothing is retried:
// the first failure is returned.
func (c *Creator) Create(ctx context.Context, funder *common.Account, mode CreationMode, space uint64) (*Result, error) {
	ctx, end := metrics.StartTransaction(ctx, accountCreationTransactionName)
	defer end()

	prepared, err := c.Prepare(ctx, funder, mode, space)
	if err != nil {
		recordAccountCreationEvent(ctx, "", mode, space, 0, err)
		return nil, err
	}

	return c.Submit(ctx, prepared)
}

// Prepare builds and signs the creation transaction without submitting it.
// The blockhash is fetched last, so the validity window starts as late as
// possible.
func (c *Creator) Prepare(ctx context.Context, funder *common.Account, mode CreationMode, space uint64) (*Prepared, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Prepare")
	defer tracer.End()

	runID := uuid.New().String()
	log := c.log.WithFields(logrus.Fields{
		"method": "Prepare",
		"run_id": runID,
		"mode":   modeName(mode),
		"space":  space,
	})
	tracer.AddAttribute("run_id", runID)

	prepared, err := c.prepare(ctx, log, runID, funder, mode, space)
	if err != nil {
		log.WithError(err).Info("failed to prepare transaction")
		tracer.OnError(err)
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"address":   prepared.Address.String(),
		"signature": prepared.Signature().String(),
		"lamports":  prepared.Lamports,
	}).Debug("transaction signed")

	return prepared, nil
}

func (c *Creator) prepare(ctx context.Context, log *logrus.Entry, runID string, funder *common.Account, mode CreationMode, space uint64) (*Prepared, error) {
	if funder == nil || funder.PrivateKey() == nil {
		return nil, ErrFunderRequired
	}
	if err := funder.Validate(); err != nil {
		return nil, errors.Wrapf(ErrFunderRequired, "invalid funder: %v", err)
	}
	if mode == nil {
		return nil, ErrInvalidCreateMode
	}

	lamports, err := c.rent.MinimumBalance(ctx, space)
	if err != nil {
		return nil, err
	}

	resolved, err := resolve(funder, mode, func() (*common.Account, error) {
		return c.freshAccountOwner(ctx)
	}, lamports, space)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, account := range resolved.ephemeral {
			account.Zero()
		}
	}()

	txn, err := solana.NewTransaction(funder.PublicKey().ToBytes(), resolved.instruction)
	if err != nil {
		return nil, errors.Wrap(err, "error building transaction")
	}
	state := newTracker(log, StateBuilt)

	blockhash, err := c.client.GetLatestBlockhash(c.commitment)
	if err != nil {
		return nil, errors.Wrap(err, "error getting latest blockhash")
	}
	txn.SetBlockhash(blockhash.Blockhash)

	signers := []ed25519.PrivateKey{funder.PrivateKey().ToBytes()}
	for _, signer := range resolved.signers {
		if signer.PrivateKey() != nil {
			signers = append(signers, signer.PrivateKey().ToBytes())
		}
	}
	if err := txn.Sign(signers...); err != nil {
		return nil, errors.Wrap(err, "error signing transaction")
	}
	if err := state.advance(StateSigned); err != nil {
		return nil, err
	}

	return &Prepared{
		RunID:                runID,
		Mode:                 mode,
		Transaction:          txn,
		LastValidBlockHeight: blockhash.LastValidBlockHeight,
		Address:              resolved.target,
		Owner:                resolved.owner,
		Base:                 resolved.base,
		Seed:                 resolved.seed,
		Lamports:             lamports,
		Space:                space,
	}, nil
}

// Submit submits a prepared transaction and waits for the configured
// commitment.
func (c *Creator) Submit(ctx context.Context, prepared *Prepared) (*Result, error) {
	log := c.log.WithFields(logrus.Fields{
		"method":    "Submit",
		"run_id":    prepared.RunID,
		"address":   prepared.Address.String(),
		"signature": prepared.Signature().String(),
	})

	sig, err := c.submitter.SubmitAndAwait(ctx, &prepared.Transaction, prepared.LastValidBlockHeight)
	recordAccountCreationEvent(ctx, prepared.RunID, prepared.Mode, prepared.Space, prepared.Lamports, err)
	if err != nil {
		log.WithError(err).WithField("kind", Kind(err).String()).Info("account creation failed")
		return nil, err
	}

	log.Info("account created")

	return &Result{
		RunID:      prepared.RunID,
		Address:    prepared.Address,
		Owner:      prepared.Owner,
		Base:       prepared.Base,
		Seed:       prepared.Seed,
		Signature:  sig,
		Lamports:   prepared.Lamports,
		Space:      prepared.Space,
		Commitment: c.commitment,
	}, nil
}

func (c *Creator) freshAccountOwner(ctx context.Context) (*common.Account, error) {
	value, err := c.conf.freshAccountOwner.GetSafe(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrConfigInvalid, "%s: %v", FreshAccountOwnerConfigEnvName, err)
	}
	if value == "" {
		return systemProgramAccount(), nil
	}

	owner, err := common.NewAccountFromPublicKeyString(value)
	if err != nil {
		return nil, errors.Wrapf(ErrConfigInvalid, "%s: %v", FreshAccountOwnerConfigEnvName, err)
	}
	return owner, nil
}

func modeName(mode CreationMode) string {
	if mode == nil {
		return "none"
	}
	return mode.String()
}
