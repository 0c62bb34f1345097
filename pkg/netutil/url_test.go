package netutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRpcUrl(t *testing.T) {
	for _, valid := range []string{
		"https://api.devnet.solana.com",
		"https://api.mainnet-beta.solana.com/",
		"http://localhost:8899",
		"http://127.0.0.1:8899",
		"http://[::1]:8899",
	} {
		assert.NoError(t, ValidateRpcUrl(valid), valid)
	}

	for _, invalid := range []string{
		"",
		"api.devnet.solana.com",
		"ws://api.devnet.solana.com",
		"https://",
		"http://localhost:0",
		"http://localhost:70000",
		"https://" + strings.Repeat("a", 254),
		"http://%zz",
	} {
		assert.Error(t, ValidateRpcUrl(invalid), invalid)
	}
}

func TestValidateDomainName(t *testing.T) {
	assert.NoError(t, ValidateDomainName("api.testnet.solana.com"))
	assert.Error(t, ValidateDomainName(""))
	assert.Error(t, ValidateDomainName(strings.Repeat("a", maxDomainNameSize+1)))
}
