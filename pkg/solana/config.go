package solana

type Environment string

const (
	EnvironmentDev   Environment = "https://api.devnet.solana.com"
	EnvironmentTest  Environment = "https://api.testnet.solana.com"
	EnvironmentProd  Environment = "https://api.mainnet-beta.solana.com"
	EnvironmentLocal Environment = "http://localhost:8899"
)

// ResolveEndpoint expands the cluster monikers accepted by the Solana CLI
// into their RPC URL. Any other value is returned unchanged.
func ResolveEndpoint(urlOrMoniker string) string {
	switch urlOrMoniker {
	case "devnet", "d":
		return string(EnvironmentDev)
	case "testnet", "t":
		return string(EnvironmentTest)
	case "mainnet-beta", "m":
		return string(EnvironmentProd)
	case "localhost", "l":
		return string(EnvironmentLocal)
	}
	return urlOrMoniker
}
