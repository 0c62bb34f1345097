package solana

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	d := json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[2,{"Custom":3}]}`))

	var raw interface{}
	assert.NoError(t, d.Decode(&raw))

	e, err := ParseTransactionError(raw)
	assert.NoError(t, err)

	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	assert.NotNil(t, e.InstructionError())
	assert.Equal(t, 2, e.InstructionError().Index)
	assert.Equal(t, InstructionErrorCustom, e.InstructionError().ErrorKey())
	assert.NotNil(t, e.InstructionError().CustomError())
	assert.Equal(t, CustomError(3), *e.InstructionError().CustomError())

	d = json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[0,"InvalidArgument"]}`))
	assert.NoError(t, d.Decode(&raw))

	e, err = ParseTransactionError(raw)
	assert.NoError(t, err)

	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	assert.NotNil(t, e.InstructionError())
	assert.Equal(t, 0, e.InstructionError().Index)
	assert.Equal(t, InstructionErrorInvalidArgument, e.InstructionError().ErrorKey())

	d = json.NewDecoder(bytes.NewBufferString(`"DuplicateSignature"`))
	assert.NoError(t, d.Decode(&raw))

	e, err = ParseTransactionError(raw)
	assert.NoError(t, err)

	assert.Equal(t, TransactionErrorDuplicateSignature, e.ErrorKey())
	assert.Nil(t, e.InstructionError())
}

func TestNew(t *testing.T) {
	d := json.NewDecoder(bytes.NewBufferString(`"DuplicateSignature"`))
	var expected interface{}
	assert.NoError(t, d.Decode(&expected))

	e := NewTransactionError(TransactionErrorDuplicateSignature)
	assert.Equal(t, expected, e.raw)

	d = json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[0,"InvalidArgument"]}`))
	assert.NoError(t, d.Decode(&expected))
	e, err := TransactionErrorFromInstructionError(&InstructionError{
		Index: 0,
		Err:   errors.New(string(InstructionErrorInvalidArgument)),
	})
	assert.NoError(t, err)
	assert.Equal(t, expected, e.raw)

	d = json.NewDecoder(bytes.NewBufferString(`{"InstructionError":[2,{"Custom":3}]}`))
	assert.NoError(t, d.Decode(&expected))
	e, err = TransactionErrorFromInstructionError(&InstructionError{
		Index: 2,
		Err:   CustomError(3),
	})
	assert.NoError(t, err)
	assert.Equal(t, expected, e.raw)
}

func TestParseJSONNumber(t *testing.T) {
	tc := []interface{}{
		"1",
		1.0,
		json.Number("1"),
	}
	for i, c := range tc {
		v, err := parseJSONNumber(c)
		assert.NoError(t, err)
		assert.Equal(t, 1, v, i)
	}
}

func TestTransactionError_Reason(t *testing.T) {
	for _, tc := range []struct {
		raw      string
		expected string
	}{
		{`"BlockhashNotFound"`, "blockhash not found"},
		{`"InsufficientFundsForFee"`, "insufficient funds for fee"},
		{`{"InsufficientFundsForRent":{"account_index":0}}`, "insufficient funds for rent"},
		{`"AlreadyProcessed"`, "already processed"},
		{`{"InstructionError":[0,"IncorrectProgramId"]}`, "incorrect program id"},
		{`{"InstructionError":[1,{"Custom":3}]}`, "custom program error: 3"},
	} {
		var raw interface{}
		assert.NoError(t, json.Unmarshal([]byte(tc.raw), &raw))

		e, err := ParseTransactionError(raw)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, e.Reason(), tc.raw)
	}
}

func TestRejectedError(t *testing.T) {
	rejected := NewRejectedError("getSignatureStatuses", NewTransactionError(TransactionErrorInsufficientFundsForRent))

	var err error = errors.Wrap(rejected, "wrapped")
	assert.True(t, errors.Is(err, ErrNodeRejected))
	assert.False(t, errors.Is(err, ErrPreflightRejected))
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.Contains(t, err.Error(), "insufficient funds for rent")

	rejected.Preflight = true
	assert.True(t, errors.Is(err, ErrPreflightRejected))
}

func TestNetworkError(t *testing.T) {
	cause := errors.New("connection refused")
	var err error = errors.Wrap(&NetworkError{Method: "getBlockHeight", Err: cause}, "wrapped")

	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNodeRejected))
	assert.Contains(t, err.Error(), "connection refused")
}
