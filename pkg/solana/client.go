package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/solana-account-creator/pkg/rate"
)

const (
	// todo: we can retrieve these from the Syscall account
	//       but they're unlikely to change.
	ticksPerSec  = 160
	ticksPerSlot = 64
	slotsPerSec  = ticksPerSec / ticksPerSlot

	// PollRate is the rate at which blocks should be polled at.
	PollRate = (time.Second / slotsPerSec) / 2

	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs
	sendTransactionPreflightFailureCode  = -32002
	transactionSignatureVerificationCode = -32003
	rpcNodeUnhealthyCode                 = -32005
	transactionSignatureLenMismatchCode  = -32013
	invalidParamCode                     = -32602

	rateLimitedCode        = 429
	minimumServerErrorCode = 500

	defaultRequestTimeout = 30 * time.Second
)

var (
	ErrNoAccountInfo = errors.New("no account info")
	ErrNoBalance     = errors.New("no balance")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
	RentEpoch  uint64
}

// RecentBlockhash is a blockhash along with the last block height at which
// transactions referencing it will be accepted.
type RecentBlockhash struct {
	Blockhash            Blockhash
	LastValidBlockHeight uint64
	Slot                 uint64
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations will be nil if the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	if s.Finalized() {
		return true
	}

	if s.ConfirmationStatus == confirmationStatusConfirmed {
		return true
	}

	return *s.Confirmations >= 1
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// Commitment returns the highest commitment level the transaction has
// reached.
func (s SignatureStatus) Commitment() Commitment {
	switch {
	case s.Finalized():
		return CommitmentFinalized
	case s.Confirmed():
		return CommitmentConfirmed
	default:
		return CommitmentProcessed
	}
}

// Reached reports whether the transaction has reached at least the provided
// commitment level.
func (s SignatureStatus) Reached(commitment Commitment) bool {
	return s.Commitment().AtLeast(commitment)
}

// Client provides an interaction with the Solana JSON RPC API.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetBalance(ed25519.PublicKey, Commitment) (uint64, error)
	GetBlockHeight(Commitment) (uint64, error)
	GetLatestBlockhash(Commitment) (RecentBlockhash, error)
	GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error)
	GetSignatureStatuses([]Signature) ([]*SignatureStatus, error)
	RequestAirdrop(ed25519.PublicKey, uint64, Commitment) (Signature, error)
	SendTransaction(Transaction, Commitment) (Signature, error)
}

type rpcResponse struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value json.RawMessage `json:"value"`
}

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	limiter rate.Limiter

	skipPreflight bool
}

// Option configures a client.
type Option func(c *clientOpts)

type clientOpts struct {
	rpcOpts       *jsonrpc.RPCClientOpts
	limiter       rate.Limiter
	skipPreflight bool
}

// WithRPCOptions configures the underlying JSON RPC client.
func WithRPCOptions(opts *jsonrpc.RPCClientOpts) Option {
	return func(c *clientOpts) {
		c.rpcOpts = opts
	}
}

// WithRateLimiter paces outgoing requests. Requests are keyed by method,
// matching how public clusters apply their limits.
func WithRateLimiter(limiter rate.Limiter) Option {
	return func(c *clientOpts) {
		c.limiter = limiter
	}
}

// WithSkipPreflight disables transaction simulation on submission.
func WithSkipPreflight(skip bool) Option {
	return func(c *clientOpts) {
		c.skipPreflight = skip
	}
}

// New returns a client using the specified endpoint.
//
// The client does not retry failed requests. Every failure is surfaced to
// the caller as either a *NetworkError or a *RejectedError.
func New(endpoint string, options ...Option) Client {
	opts := &clientOpts{
		rpcOpts: &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Timeout: defaultRequestTimeout},
		},
		limiter: &rate.NoLimiter{},
	}
	for _, o := range options {
		o(opts)
	}

	return &client{
		log:           logrus.StandardLogger().WithField("type", "solana/client"),
		client:        jsonrpc.NewClientWithOpts(endpoint, opts.rpcOpts),
		limiter:       opts.limiter,
		skipPreflight: opts.skipPreflight,
	}
}

func (c *client) call(out interface{}, method string, params ...interface{}) error {
	if err := c.limiter.Wait(context.Background(), method); err != nil {
		return &NetworkError{Method: method, Err: err}
	}

	resp, err := c.client.Call(method, params...)
	if err != nil {
		return c.handleTransportError(method, err)
	}

	if resp.Error != nil {
		return c.handleRpcError(method, resp.Error)
	}

	if err := resp.GetObject(out); err != nil {
		return errors.Wrapf(ErrMalformedResponse, "%s: %v", method, err)
	}

	return nil
}

func (c *client) handleTransportError(method string, err error) error {
	if httpErr, ok := err.(*jsonrpc.HTTPError); ok {
		c.log.WithFields(logrus.Fields{
			"method": method,
			"code":   httpErr.Code,
		}).Debug("http error")
	}

	return &NetworkError{Method: method, Err: err}
}

func (c *client) handleRpcError(method string, rpcErr *jsonrpc.RPCError) error {
	log := c.log.WithFields(logrus.Fields{
		"method": method,
		"code":   rpcErr.Code,
	})

	if rpcErr.Code == rateLimitedCode {
		log.Warn("rate limited")
		return &NetworkError{Method: method, Err: rpcErr}
	}
	if rpcErr.Code >= minimumServerErrorCode || rpcErr.Code == rpcNodeUnhealthyCode {
		log.Warn("node unavailable")
		return &NetworkError{Method: method, Err: rpcErr}
	}

	rejected := &RejectedError{
		Method:  method,
		Code:    rpcErr.Code,
		Message: rpcErr.Message,
		Reason:  rpcErr.Message,
	}

	switch rpcErr.Code {
	case sendTransactionPreflightFailureCode:
		rejected.Preflight = true
		rejected.Logs = parseLogs(rpcErr.Data)
	case transactionSignatureVerificationCode, transactionSignatureLenMismatchCode:
		rejected.Preflight = true
		rejected.Reason = humanize(string(TransactionErrorSignatureFailure))
	}

	txErr, err := ParseRPCError(rpcErr)
	if err == nil && txErr != nil {
		rejected.TxErr = txErr
		rejected.Reason = txErr.Reason()
	}

	log.WithField("reason", rejected.Reason).Debug("request rejected")
	return rejected
}

func parseLogs(data interface{}) []string {
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}

	raw, ok := m["logs"].([]interface{})
	if !ok {
		return nil
	}

	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

func (c *client) GetMinimumBalanceForRentExemption(dataSize uint64) (lamports uint64, err error) {
	if err := c.call(&lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, errors.Wrap(err, "getMinimumBalanceForRentExemption() failed")
	}

	return lamports, nil
}

func (c *client) GetBlockHeight(commitment Commitment) (height uint64, err error) {
	// note: we have to wrap the commitment in an []interface{} otherwise the
	//       solana RPC node complains. Technically this is a violation of the
	//       JSON RPC v2.0 spec.
	if err := c.call(&height, "getBlockHeight", []interface{}{commitment.config()}); err != nil {
		return 0, errors.Wrap(err, "getBlockHeight() failed")
	}

	return height, nil
}

func (c *client) GetLatestBlockhash(commitment Commitment) (RecentBlockhash, error) {
	type value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	}

	var resp rpcResponse
	if err := c.call(&resp, "getLatestBlockhash", []interface{}{commitment.config()}); err != nil {
		return RecentBlockhash{}, errors.Wrap(err, "getLatestBlockhash() failed")
	}

	var v value
	if err := json.Unmarshal(resp.Value, &v); err != nil {
		return RecentBlockhash{}, errors.Wrapf(ErrMalformedResponse, "getLatestBlockhash: %v", err)
	}

	hashBytes, err := base58.Decode(v.Blockhash)
	if err != nil || len(hashBytes) != len(Blockhash{}) {
		return RecentBlockhash{}, errors.Wrapf(ErrMalformedResponse, "invalid blockhash: %q", v.Blockhash)
	}

	result := RecentBlockhash{
		LastValidBlockHeight: v.LastValidBlockHeight,
		Slot:                 resp.Context.Slot,
	}
	copy(result.Blockhash[:], hashBytes)

	return result, nil
}

func (c *client) GetBalance(account ed25519.PublicKey, commitment Commitment) (uint64, error) {
	var resp rpcResponse
	if err := c.call(&resp, "getBalance", base58.Encode(account[:]), commitment.config()); err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) && rejected.Code == invalidParamCode {
			return 0, ErrNoBalance
		}

		return 0, errors.Wrap(err, "getBalance() failed")
	}

	var balance uint64
	if err := json.Unmarshal(resp.Value, &balance); err != nil {
		return 0, errors.Wrapf(ErrMalformedResponse, "getBalance: %v", err)
	}

	return balance, nil
}

func (c *client) GetAccountInfo(account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	type value struct {
		Lamports   uint64   `json:"lamports"`
		Owner      string   `json:"owner"`
		Data       []string `json:"data"`
		Executable bool     `json:"executable"`
		RentEpoch  uint64   `json:"rentEpoch"`
	}

	rpcConfig := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.String(),
		Encoding:   "base64",
	}

	var resp rpcResponse
	if err := c.call(&resp, "getAccountInfo", base58.Encode(account[:]), rpcConfig); err != nil {
		return accountInfo, errors.Wrap(err, "getAccountInfo() failed")
	}

	var v *value
	if err := json.Unmarshal(resp.Value, &v); err != nil {
		return accountInfo, errors.Wrapf(ErrMalformedResponse, "getAccountInfo: %v", err)
	}
	if v == nil {
		return accountInfo, ErrNoAccountInfo
	}

	accountInfo.Owner, err = base58.Decode(v.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(ErrMalformedResponse, "invalid base58 encoded owner")
	}

	if len(v.Data) > 0 {
		accountInfo.Data, err = base64.StdEncoding.DecodeString(v.Data[0])
		if err != nil {
			return accountInfo, errors.Wrap(ErrMalformedResponse, "invalid base64 encoded data")
		}
	}

	accountInfo.Lamports = v.Lamports
	accountInfo.Executable = v.Executable
	accountInfo.RentEpoch = v.RentEpoch

	return accountInfo, nil
}

func (c *client) SendTransaction(txn Transaction, commitment Commitment) (Signature, error) {
	sig := txn.Signature()
	txnBytes := txn.Marshal()

	config := struct {
		Encoding            string `json:"encoding"`
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		Encoding:            "base64",
		SkipPreflight:       c.skipPreflight,
		PreflightCommitment: commitment.String(),
	}

	var sigStr string
	if err := c.call(&sigStr, "sendTransaction", base64.StdEncoding.EncodeToString(txnBytes), config); err != nil {
		return sig, errors.Wrap(err, "sendTransaction() failed")
	}

	returned, err := base58.Decode(sigStr)
	if err != nil || len(returned) != len(sig) {
		return sig, errors.Wrapf(ErrMalformedResponse, "invalid signature in response: %q", sigStr)
	}
	if Signature(returned) != sig {
		return sig, errors.Wrapf(ErrMalformedResponse, "node returned signature %s, expected %s", sigStr, sig)
	}

	return sig, nil
}

func (c *client) RequestAirdrop(account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error) {
	var sigStr string
	if err := c.call(&sigStr, "requestAirdrop", base58.Encode(account[:]), lamports, commitment.config()); err != nil {
		return Signature{}, errors.Wrap(err, "requestAirdrop() failed")
	}

	sigBytes, err := base58.Decode(sigStr)
	if err != nil || len(sigBytes) != len(Signature{}) {
		return Signature{}, errors.Wrap(ErrMalformedResponse, "invalid signature in response")
	}

	var sig Signature
	copy(sig[:], sigBytes)

	return sig, nil
}

func (c *client) GetSignatureStatuses(sigs []Signature) ([]*SignatureStatus, error) {
	b58Sigs := make([]string, len(sigs))
	for i := range sigs {
		b58Sigs[i] = base58.Encode(sigs[i][:])
	}

	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	type signatureStatus struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *int            `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	}

	var resp rpcResponse
	if err := c.call(&resp, "getSignatureStatuses", b58Sigs, req); err != nil {
		return nil, errors.Wrap(err, "getSignatureStatuses() failed")
	}

	var values []*signatureStatus
	if err := json.Unmarshal(resp.Value, &values); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "getSignatureStatuses: %v", err)
	}
	if len(values) != len(sigs) {
		return nil, errors.Wrapf(ErrMalformedResponse, "expected %d statuses, got %d", len(sigs), len(values))
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range values {
		if v == nil {
			continue
		}

		statuses[i] = &SignatureStatus{}
		statuses[i].Confirmations = v.Confirmations
		statuses[i].ConfirmationStatus = v.ConfirmationStatus
		statuses[i].Slot = v.Slot

		if len(v.Err) > 0 && string(v.Err) != "null" {
			var txError interface{}
			if err := json.Unmarshal(v.Err, &txError); err != nil {
				return nil, errors.Wrap(err, "failed to parse transaction result")
			}

			parsed, err := ParseTransactionError(txError)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse transaction result")
			}
			statuses[i].ErrorResult = parsed
		}
	}

	return statuses, nil
}
