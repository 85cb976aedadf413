package risk

// Pattern names emitted by DetectPatterns. These are stable strings:
// they appear in persisted assessments, alert payloads, and posted
// commentary, so changing them is a breaking change.
const (
	PatternDevSells         = "Multiple dev wallet sells detected"
	PatternLiquidityRemoval = "Significant liquidity removal"
)

// Detection thresholds. Both comparisons are strict: exactly 3 dev
// sells or exactly 50% aggregate LP removal does not fire.
const (
	devSellCountThreshold = 3
	lpRemovedPctThreshold = 50.0
	confidencePerPattern  = 0.3
)

// DetectPatterns scans a chronological transaction history for
// rug-pull signatures. It is total over any finite history, including
// an empty one, and allocates only its result.
//
// Patterns are appended in fixed detection order (dev sells before
// liquidity removal) regardless of where the transactions sit in the
// input, so verdicts are reproducible for a given history.
func DetectPatterns(history []TransactionRecord) Verdict {
	var (
		devSells     int
		lpRemovedPct float64
	)
	for _, tx := range history {
		switch tx.Kind {
		case KindDevSell:
			devSells++
		case KindLPRemove:
			if tx.Amount > 0 {
				lpRemovedPct += tx.Amount
			}
		}
	}

	verdict := Verdict{Level: LevelLow, Patterns: []string{}}

	if devSells > devSellCountThreshold {
		verdict.Patterns = append(verdict.Patterns, PatternDevSells)
		if verdict.Level < LevelMedium {
			verdict.Level = LevelMedium
		}
	}

	// Independent of the dev-sell check: an aggregate drain of more
	// than half the pool is HIGH on its own.
	if lpRemovedPct > lpRemovedPctThreshold {
		verdict.Patterns = append(verdict.Patterns, PatternLiquidityRemoval)
		verdict.Level = LevelHigh
		verdict.Suspicious = true
	}

	verdict.Confidence = confidencePerPattern * float64(len(verdict.Patterns))
	if verdict.Confidence > 1.0 {
		verdict.Confidence = 1.0
	}

	return verdict
}
