// Package memory provides an in-memory solana.Client that applies the
// system program's account creation rules. It is intended for tests.
package memory

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-account-creator/pkg/solana"
	"github.com/code-payments/solana-account-creator/pkg/solana/system"
)

const (
	// LamportsPerByteYear and ExemptionThreshold match the default rent
	// configuration of a Solana cluster.
	LamportsPerByteYear    = 3480
	ExemptionThreshold     = 2
	AccountStorageOverhead = 128

	LamportsPerSignature = 5000

	// BlockhashValidity is the number of blocks a blockhash may be
	// referenced for.
	BlockhashValidity = 150

	// FinalizationDepth is the number of blocks after which a processed
	// transaction is considered finalized.
	FinalizationDepth = 32

	// MaxPermittedDataLength is the largest account the system program will
	// allocate.
	MaxPermittedDataLength = 10 * 1024 * 1024

	sendTransactionMethod = "sendTransaction"

	preflightFailureCode      = -32002
	signatureVerificationCode = -32003
)

// RentExemption returns the minimum balance for an account holding size
// bytes of data.
func RentExemption(size uint64) uint64 {
	return (AccountStorageOverhead + size) * LamportsPerByteYear * ExemptionThreshold
}

type account struct {
	lamports uint64
	owner    ed25519.PublicKey
	data     []byte
}

func (a *account) clone() *account {
	return &account{
		lamports: a.lamports,
		owner:    a.owner,
		data:     append([]byte{}, a.data...),
	}
}

type landed struct {
	height uint64
	err    *solana.TransactionError
}

// Node is an in-memory Solana node.
//
// Block production is driven by the caller: every GetSignatureStatuses call
// produces one block, and AdvanceBlocks produces any number of them.
type Node struct {
	log *logrus.Entry

	mu          sync.Mutex
	height      uint64
	accounts    map[string]*account
	blockhashes map[solana.Blockhash]uint64
	txns        map[solana.Signature]*landed

	skipPreflight bool
	dropNext      int
	failNext      []error

	airdrops uint64
}

// Option configures a Node.
type Option func(n *Node)

// WithSkipPreflight makes the node accept transactions that fail execution.
// Such transactions land with an error, and the fee is still charged.
func WithSkipPreflight() Option {
	return func(n *Node) {
		n.skipPreflight = true
	}
}

// New returns an empty node at block height 1.
func New(opts ...Option) *Node {
	n := &Node{
		log:         logrus.StandardLogger().WithField("type", "solana/memory"),
		height:      1,
		accounts:    make(map[string]*account),
		blockhashes: make(map[solana.Blockhash]uint64),
		txns:        make(map[solana.Signature]*landed),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Fund credits lamports to the account, creating it if needed.
func (n *Node) Fund(pub ed25519.PublicKey, lamports uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.fund(pub, lamports)
}

func (n *Node) fund(pub ed25519.PublicKey, lamports uint64) {
	a, ok := n.accounts[string(pub)]
	if !ok {
		a = &account{owner: system.ProgramKey[:]}
		n.accounts[string(pub)] = a
	}
	a.lamports += lamports
}

// AdvanceBlocks produces count empty blocks.
func (n *Node) AdvanceBlocks(count uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.height += count
}

// BlockHeight returns the current block height.
func (n *Node) BlockHeight() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.height
}

// DropNextTransaction causes the next accepted transaction to be acknowledged
// but never land.
func (n *Node) DropNextTransaction() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.dropNext++
}

// FailNextCall causes the next call to any Client method to fail with a
// *solana.NetworkError wrapping err.
func (n *Node) FailNextCall(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.failNext = append(n.failNext, err)
}

// Account returns the state of an account, if it exists.
func (n *Node) Account(pub ed25519.PublicKey) (solana.AccountInfo, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	a, ok := n.accounts[string(pub)]
	if !ok {
		return solana.AccountInfo{}, false
	}
	return toAccountInfo(a), true
}

func toAccountInfo(a *account) solana.AccountInfo {
	return solana.AccountInfo{
		Data:     append([]byte{}, a.data...),
		Owner:    append(ed25519.PublicKey{}, a.owner...),
		Lamports: a.lamports,
	}
}

func (n *Node) injected(method string) error {
	if len(n.failNext) == 0 {
		return nil
	}

	err := n.failNext[0]
	n.failNext = n.failNext[1:]
	return &solana.NetworkError{Method: method, Err: err}
}

// GetAccountInfo implements solana.Client.GetAccountInfo.
func (n *Node) GetAccountInfo(pub ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.injected("getAccountInfo"); err != nil {
		return solana.AccountInfo{}, err
	}

	a, ok := n.accounts[string(pub)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return toAccountInfo(a), nil
}

// GetBalance implements solana.Client.GetBalance.
func (n *Node) GetBalance(pub ed25519.PublicKey, _ solana.Commitment) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.injected("getBalance"); err != nil {
		return 0, err
	}

	if a, ok := n.accounts[string(pub)]; ok {
		return a.lamports, nil
	}
	return 0, nil
}

// GetBlockHeight implements solana.Client.GetBlockHeight.
func (n *Node) GetBlockHeight(_ solana.Commitment) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.injected("getBlockHeight"); err != nil {
		return 0, err
	}
	return n.height, nil
}

// GetLatestBlockhash implements solana.Client.GetLatestBlockhash.
func (n *Node) GetLatestBlockhash(_ solana.Commitment) (solana.RecentBlockhash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.injected("getLatestBlockhash"); err != nil {
		return solana.RecentBlockhash{}, err
	}

	var heightBytes [8]byte
	binary.LittleEndian.PutUint64(heightBytes[:], n.height)

	hash := solana.Blockhash(sha256.Sum256(heightBytes[:]))
	lastValid := n.height + BlockhashValidity
	n.blockhashes[hash] = lastValid

	return solana.RecentBlockhash{
		Blockhash:            hash,
		LastValidBlockHeight: lastValid,
		Slot:                 n.height,
	}, nil
}

// GetMinimumBalanceForRentExemption implements solana.Client.GetMinimumBalanceForRentExemption.
func (n *Node) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.injected("getMinimumBalanceForRentExemption"); err != nil {
		return 0, err
	}
	return RentExemption(size), nil
}

// GetSignatureStatuses implements solana.Client.GetSignatureStatuses. Each
// call produces a block.
func (n *Node) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.injected("getSignatureStatuses"); err != nil {
		return nil, err
	}

	n.height++

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		txn, ok := n.txns[sig]
		if !ok {
			continue
		}

		status := &solana.SignatureStatus{
			Slot:        txn.height,
			ErrorResult: txn.err,
		}

		depth := int(n.height - txn.height)
		switch {
		case depth >= FinalizationDepth:
			status.ConfirmationStatus = "finalized"
		case depth >= 1:
			status.ConfirmationStatus = "confirmed"
			status.Confirmations = &depth
		default:
			status.ConfirmationStatus = "processed"
			status.Confirmations = &depth
		}

		statuses[i] = status
	}

	return statuses, nil
}

// RequestAirdrop implements solana.Client.RequestAirdrop.
func (n *Node) RequestAirdrop(pub ed25519.PublicKey, lamports uint64, _ solana.Commitment) (solana.Signature, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.injected("requestAirdrop"); err != nil {
		return solana.Signature{}, err
	}

	n.airdrops++
	h := sha256.New()
	h.Write([]byte("airdrop"))
	h.Write(pub)
	_ = binary.Write(h, binary.LittleEndian, n.airdrops)

	var sig solana.Signature
	copy(sig[:], h.Sum(nil))

	n.fund(pub, lamports)
	n.txns[sig] = &landed{height: n.height}

	return sig, nil
}

// SendTransaction implements solana.Client.SendTransaction.
//
// Failures that a validator would detect during simulation are returned as
// *solana.RejectedError, unless the node was created WithSkipPreflight.
func (n *Node) SendTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sig := txn.Signature()
	if err := n.injected(sendTransactionMethod); err != nil {
		return sig, err
	}

	log := n.log.WithField("signature", sig.String())

	// Checks that happen before a transaction can be scheduled are always
	// enforced, regardless of preflight.
	if err := txn.Verify(); err != nil {
		log.WithError(err).Debug("signature verification failed")
		return sig, &solana.RejectedError{
			Method:    sendTransactionMethod,
			Code:      signatureVerificationCode,
			Message:   "Transaction signature verification failure",
			Reason:    "signature failure",
			TxErr:     solana.NewTransactionError(solana.TransactionErrorSignatureFailure),
			Preflight: true,
		}
	}
	if _, ok := n.txns[sig]; ok {
		return sig, preflightRejection(solana.NewTransactionError(solana.TransactionErrorAlreadyProcessed), nil)
	}
	lastValid, ok := n.blockhashes[txn.Message.RecentBlockhash]
	if !ok || n.height > lastValid {
		return sig, preflightRejection(solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound), nil)
	}

	payer, ok := n.accounts[string(txn.Message.Accounts[0])]
	if !ok {
		return sig, preflightRejection(solana.NewTransactionError(solana.TransactionErrorAccountNotFound), nil)
	}
	fee := uint64(len(txn.Signatures)) * LamportsPerSignature
	if payer.lamports < fee {
		return sig, preflightRejection(solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee), nil)
	}

	updated, txErr, logs := n.execute(txn, fee)
	if txErr != nil && !n.skipPreflight {
		log.WithField("reason", txErr.Reason()).Debug("transaction failed simulation")
		return sig, preflightRejection(txErr, logs)
	}

	if n.dropNext > 0 {
		n.dropNext--
		log.Debug("dropping transaction")
		return sig, nil
	}

	if txErr != nil {
		// Failed transactions still pay their fee.
		payer.lamports -= fee
	} else {
		for k, a := range updated {
			n.accounts[k] = a
		}
	}

	n.txns[sig] = &landed{height: n.height, err: txErr}
	log.WithField("height", n.height).Debug("transaction processed")

	return sig, nil
}

// execute runs the transaction's instructions against a copy of the touched
// accounts. The copies are returned for the caller to commit on success.
func (n *Node) execute(txn solana.Transaction, fee uint64) (map[string]*account, *solana.TransactionError, []string) {
	m := txn.Message
	working := make(map[string]*account)
	load := func(pub ed25519.PublicKey) *account {
		if a, ok := working[string(pub)]; ok {
			return a
		}
		a, ok := n.accounts[string(pub)]
		if ok {
			a = a.clone()
		} else {
			a = &account{owner: system.ProgramKey[:]}
		}
		working[string(pub)] = a
		return a
	}

	load(m.Accounts[0]).lamports -= fee

	var logs []string
	for i, instruction := range m.Instructions {
		program := m.Accounts[instruction.ProgramIndex]
		logs = append(logs, fmt.Sprintf("Program %s invoke [1]", base58.Encode(program)))

		if !bytes.Equal(program, system.ProgramKey[:]) {
			return nil, solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound), logs
		}

		var (
			funder, address   ed25519.PublicKey
			lamports, space   uint64
			owner             ed25519.PublicKey
			addressMustSign   bool
			createErr         error
			seeded            *system.DecompiledCreateAccountWithSeed
			plain             *system.DecompiledCreateAccount
			instructionFailed = func(err error) (map[string]*account, *solana.TransactionError, []string) {
				txErr, _ := solana.TransactionErrorFromInstructionError(&solana.InstructionError{Index: i, Err: err})
				logs = append(logs, fmt.Sprintf("Program %s failed: %v", base58.Encode(program), err))
				return nil, txErr, logs
			}
		)

		if plain, createErr = system.DecompileCreateAccount(m, i); createErr == nil {
			funder, address = plain.Funder, plain.Address
			lamports, space, owner = plain.Lamports, plain.Size, plain.Owner
			addressMustSign = true
		} else if seeded, createErr = system.DecompileCreateAccountWithSeed(m, i); createErr == nil {
			funder, address = seeded.Funder, seeded.Address
			lamports, space, owner = seeded.Lamports, seeded.Size, seeded.Owner

			if !isSigner(m, seeded.Base) {
				return instructionFailed(errors.New(string(solana.InstructionErrorMissingRequiredSignature)))
			}

			derived, err := solana.CreateWithSeed(seeded.Base, seeded.Seed, seeded.Owner)
			if err == solana.ErrSeedTooLong {
				return instructionFailed(solana.CustomError(system.ErrorMaxSeedLengthExceeded))
			}
			if err != nil || !bytes.Equal(derived, address) {
				logs = append(logs, "Create: address does not match derived address")
				return instructionFailed(solana.CustomError(system.ErrorAddressWithSeedMismatch))
			}
		} else {
			return instructionFailed(errors.New(string(solana.InstructionErrorInvalidInstructionData)))
		}

		if !isSigner(m, funder) || (addressMustSign && !isSigner(m, address)) {
			return instructionFailed(errors.New(string(solana.InstructionErrorMissingRequiredSignature)))
		}
		if !isWritable(m, funder) || !isWritable(m, address) {
			return instructionFailed(errors.New(string(solana.InstructionErrorReadonlyLamportChange)))
		}

		target := load(address)
		if target.lamports > 0 || len(target.data) > 0 || !bytes.Equal(target.owner, system.ProgramKey[:]) {
			logs = append(logs, fmt.Sprintf("Create Account: account Address { address: %s, base: None } already in use", base58.Encode(address)))
			return instructionFailed(solana.CustomError(system.ErrorAccountAlreadyInUse))
		}
		if space > MaxPermittedDataLength {
			return instructionFailed(solana.CustomError(system.ErrorInvalidAccountDataLength))
		}

		from := load(funder)
		if from.lamports < lamports {
			logs = append(logs, fmt.Sprintf("Transfer: insufficient lamports %d, need %d", from.lamports, lamports))
			return instructionFailed(solana.CustomError(system.ErrorResultWithNegativeLamports))
		}

		from.lamports -= lamports
		target.lamports = lamports
		target.data = make([]byte, space)
		target.owner = append(ed25519.PublicKey{}, owner...)

		logs = append(logs, fmt.Sprintf("Program %s success", base58.Encode(program)))
	}

	// Every account touched must either be emptied or remain rent exempt.
	for i, pub := range m.Accounts {
		a, ok := working[string(pub)]
		if !ok || a.lamports == 0 {
			continue
		}

		if a.lamports < RentExemption(uint64(len(a.data))) {
			txErr, _ := solana.ParseTransactionError(map[string]interface{}{
				string(solana.TransactionErrorInsufficientFundsForRent): map[string]interface{}{
					"account_index": i,
				},
			})
			return nil, txErr, logs
		}
	}

	return working, nil, logs
}

func accountIndex(m solana.Message, pub ed25519.PublicKey) int {
	for i, account := range m.Accounts {
		if bytes.Equal(account, pub) {
			return i
		}
	}
	return -1
}

func isSigner(m solana.Message, pub ed25519.PublicKey) bool {
	return m.IsSigner(accountIndex(m, pub))
}

func isWritable(m solana.Message, pub ed25519.PublicKey) bool {
	return m.IsWritable(accountIndex(m, pub))
}

func preflightRejection(txErr *solana.TransactionError, logs []string) error {
	return &solana.RejectedError{
		Method:    sendTransactionMethod,
		Code:      preflightFailureCode,
		Message:   fmt.Sprintf("Transaction simulation failed: %s", txErr.Error()),
		Reason:    txErr.Reason(),
		TxErr:     txErr,
		Logs:      logs,
		Preflight: true,
	}
}
