package system

// ErrorCode is a custom error returned by the system program.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/system_instruction.rs#L20-L41
type ErrorCode uint32

const (
	ErrorAccountAlreadyInUse ErrorCode = iota
	ErrorResultWithNegativeLamports
	ErrorInvalidProgramId
	ErrorInvalidAccountDataLength
	ErrorMaxSeedLengthExceeded
	ErrorAddressWithSeedMismatch
	ErrorNonceNoRecentBlockhashes
	ErrorNonceBlockhashNotExpired
	ErrorNonceUnexpectedBlockhashValue
)

var errorReasons = map[ErrorCode]string{
	ErrorAccountAlreadyInUse:           "account already in use",
	ErrorResultWithNegativeLamports:    "insufficient funds for rent",
	ErrorInvalidProgramId:              "cannot assign account to program id",
	ErrorInvalidAccountDataLength:      "invalid account data length",
	ErrorMaxSeedLengthExceeded:         "seed length exceeds maximum",
	ErrorAddressWithSeedMismatch:       "address does not match seed derivation",
	ErrorNonceNoRecentBlockhashes:      "no recent blockhashes for nonce",
	ErrorNonceBlockhashNotExpired:      "nonce blockhash not expired",
	ErrorNonceUnexpectedBlockhashValue: "unexpected nonce blockhash value",
}

// ErrorReason returns a human readable reason for a system program custom
// error code. ok is false for codes the system program does not define.
func ErrorReason(code uint32) (reason string, ok bool) {
	reason, ok = errorReasons[ErrorCode(code)]
	return reason, ok
}
