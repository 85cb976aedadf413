package risk

// Penalty weights for the additive scoring model. Each bucketed factor
// contributes at most one tier: tiers are evaluated from the most
// severe threshold down and the first match wins. The raw sum can
// reach 130; the final score is clamped to [0,100].
const (
	penaltyMintAuthority   = 30.0
	penaltyFreezeAuthority = 20.0

	penaltyHoldersVeryLow = 15.0 // holder_count < 50
	penaltyHoldersLow     = 10.0 // 50 <= holder_count < 100

	penaltyTop10VeryHigh = 20.0 // top10 > 80
	penaltyTop10High     = 15.0 // 60 < top10 <= 80
	penaltyTop10Elevated = 10.0 // 40 < top10 <= 60

	penaltyDevHigh     = 15.0 // dev > 20
	penaltyDevElevated = 10.0 // 10 < dev <= 20

	penaltyLiquidityUnlocked = 20.0
	penaltyLiquidityThin     = 10.0 // liquidity_usd < 5000

	// MaxScore is the upper bound of every assessment value.
	MaxScore = 100.0
)

// Score computes the rug-risk assessment for a token snapshot. It is
// total: malformed numeric input is clamped, never rejected, so the
// same Factors always yield the same Assessment and no input can make
// it fail.
func Score(f Factors) Assessment {
	f = clampFactors(f)

	var contribs []Contribution
	add := func(factor, reason string, points float64) {
		contribs = append(contribs, Contribution{Factor: factor, Reason: reason, Points: points})
	}

	if !f.MintAuthorityRevoked {
		add("mint_authority", "mint authority still active", penaltyMintAuthority)
	}
	if !f.FreezeAuthorityRevoked {
		add("freeze_authority", "freeze authority still active", penaltyFreezeAuthority)
	}

	switch {
	case f.HolderCount < 50:
		add("holder_count", "fewer than 50 holders", penaltyHoldersVeryLow)
	case f.HolderCount < 100:
		add("holder_count", "fewer than 100 holders", penaltyHoldersLow)
	}

	switch {
	case f.Top10HoldingsPct > 80:
		add("top10_holdings", "top 10 wallets hold more than 80% of supply", penaltyTop10VeryHigh)
	case f.Top10HoldingsPct > 60:
		add("top10_holdings", "top 10 wallets hold more than 60% of supply", penaltyTop10High)
	case f.Top10HoldingsPct > 40:
		add("top10_holdings", "top 10 wallets hold more than 40% of supply", penaltyTop10Elevated)
	}

	switch {
	case f.DevHoldingsPct > 20:
		add("dev_holdings", "dev wallet holds more than 20% of supply", penaltyDevHigh)
	case f.DevHoldingsPct > 10:
		add("dev_holdings", "dev wallet holds more than 10% of supply", penaltyDevElevated)
	}

	if !f.LiquidityLocked {
		add("liquidity_lock", "liquidity is not locked", penaltyLiquidityUnlocked)
	}
	if f.LiquidityUSD < 5000 {
		add("liquidity_depth", "liquidity below $5,000", penaltyLiquidityThin)
	}

	var total float64
	for _, c := range contribs {
		total += c.Points
	}
	if total > MaxScore {
		total = MaxScore
	}

	return Assessment{Value: total, Contributions: contribs}
}

// clampFactors bounds numeric fields so out-of-range input from an
// untrusted source cannot distort the score beyond its valid domain.
func clampFactors(f Factors) Factors {
	if f.HolderCount < 0 {
		f.HolderCount = 0
	}
	f.Top10HoldingsPct = clampPct(f.Top10HoldingsPct)
	f.DevHoldingsPct = clampPct(f.DevHoldingsPct)
	if f.LiquidityUSD < 0 {
		f.LiquidityUSD = 0
	}
	return f
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
