// Package risk implements the deterministic rug-risk engine: a
// weighted-factor scorer for on-chain token attributes and a pattern
// detector that scans transaction history for rug-pull signatures.
//
// Both operations are pure functions of their inputs. They hold no
// state, perform no I/O, and are safe to call concurrently without
// coordination. Callers that want caching inject a Cache; the engine
// itself is cache-agnostic.
package risk

// Factors is an immutable snapshot of the on-chain attributes the
// scorer evaluates. Callers are expected to normalize percentages to
// [0,100] before scoring; the scorer clamps defensively regardless.
type Factors struct {
	MintAuthorityRevoked   bool    `json:"mint_authority_revoked"`
	FreezeAuthorityRevoked bool    `json:"freeze_authority_revoked"`
	HolderCount            int     `json:"holder_count"`
	Top10HoldingsPct       float64 `json:"top10_holdings_pct"`
	DevHoldingsPct         float64 `json:"dev_holdings_pct"`
	LiquidityLocked        bool    `json:"liquidity_locked"`
	LiquidityUSD           float64 `json:"liquidity_usd"`
}

// Contribution records a single penalty that fired during scoring.
// The alerting layer renders these so every score is explainable as
// "these specific factors fired".
type Contribution struct {
	Factor string  `json:"factor"`
	Reason string  `json:"reason"`
	Points float64 `json:"points"`
}

// Assessment is the scorer output: the clamped total plus the
// per-factor breakdown that produced it. Value 0 is safest, 100 is
// riskiest.
type Assessment struct {
	Value         float64        `json:"value"`
	Contributions []Contribution `json:"contributions"`
}

// TransactionKind is the closed set of transaction categories the
// pattern detector understands. Anything else maps to KindOther and
// never triggers a pattern.
type TransactionKind string

const (
	KindDevSell  TransactionKind = "dev_sell"
	KindLPRemove TransactionKind = "lp_remove"
	KindBuy      TransactionKind = "buy"
	KindSell     TransactionKind = "sell"
	KindOther    TransactionKind = "other"
)

// ParseTransactionKind normalizes a raw transaction-type string into
// the closed kind set. Unrecognized values become KindOther.
func ParseTransactionKind(s string) TransactionKind {
	switch TransactionKind(s) {
	case KindDevSell, KindLPRemove, KindBuy, KindSell:
		return TransactionKind(s)
	default:
		return KindOther
	}
}

// TransactionRecord is one entry in a token's chronological history.
// Amount semantics depend on Kind: token units for dev_sell/buy/sell,
// percent-of-pool for lp_remove.
type TransactionRecord struct {
	Kind   TransactionKind `json:"kind"`
	Amount float64         `json:"amount"`
}

// Level is the qualitative risk level of a pattern verdict,
// ordered LevelLow < LevelMedium < LevelHigh.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

// String returns the wire representation of the level.
func (l Level) String() string {
	switch l {
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	default:
		return "LOW"
	}
}

// ParseLevel parses a wire-format level string. Unknown values parse
// as LevelLow.
func ParseLevel(s string) Level {
	switch s {
	case "MEDIUM":
		return LevelMedium
	case "HIGH":
		return LevelHigh
	default:
		return LevelLow
	}
}

// MarshalText implements encoding.TextMarshaler so levels serialize as
// their string form in JSON.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	*l = ParseLevel(string(b))
	return nil
}

// Verdict is the pattern detector output. Patterns are listed in
// detection order, which is fixed so output is reproducible.
type Verdict struct {
	Suspicious bool     `json:"is_suspicious"`
	Level      Level    `json:"risk_level"`
	Patterns   []string `json:"detected_patterns"`
	Confidence float64  `json:"confidence"`
}
