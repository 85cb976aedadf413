package solana

// MintInfo is the parsed state of an SPL token mint account.
// The authority flags report whether the corresponding authority has
// been revoked (set to none), which is what the risk scorer cares about.
type MintInfo struct {
	Supply                 uint64
	Decimals               uint8
	Initialized            bool
	MintAuthorityRevoked   bool
	FreezeAuthorityRevoked bool
}

// HolderDistribution summarizes how a token's supply is spread across
// its holders. Percentages are of total supply, in [0,100].
type HolderDistribution struct {
	HolderCount      int
	Top10HoldingsPct float64
	DevHoldingsPct   float64
}
