package thorchain

const ThornodeBaseURL = "https://thornode.ninerealms.com"

// Chains THORChain routes between.
var supportedChains = map[string]bool{
	"BTC":  true,
	"ETH":  true,
	"AVAX": true,
	"BASE": true,
	"DOGE": true,
	"LTC":  true,
	"BCH":  true,
	"GAIA": true,
	"THOR": true,
}

// THORChain amounts are always expressed with 8 decimals.
const thorDecimals = 8

// Router ABI for depositWithExpiry. Native deposits pass the zero
// address as asset and carry the amount as tx value.
const RouterDepositABI = `[{"inputs":[{"name":"vault","type":"address"},{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"memo","type":"string"},{"name":"expiry","type":"uint256"}],"name":"depositWithExpiry","outputs":[],"stateMutability":"payable","type":"function"}]`
