package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-account-creator/pkg/common"
)

// WriteKeypairFile writes the account's key pair in the solana-keygen format
// and returns the file path.
func WriteKeypairFile(t *testing.T, account *common.Account) string {
	private := account.PrivateKey().ToBytes()
	values := make([]int, len(private))
	for i, b := range private {
		values[i] = int(b)
	}

	data, err := json.Marshal(values)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// WriteSolanaCLIConfig writes a Solana CLI configuration file using funder as
// the default key pair and returns the file path.
func WriteSolanaCLIConfig(t *testing.T, funder *common.Account, commitment string) string {
	config := fmt.Sprintf("json_rpc_url: http://localhost:8899\nkeypair_path: %s\ncommitment: %q\n", WriteKeypairFile(t, funder), commitment)

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0600))
	return path
}
