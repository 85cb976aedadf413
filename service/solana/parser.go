package solana

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
)

// Well-known Solana program IDs
var (
	// TokenProgramID is the SPL Token program
	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// Token2022ProgramID is the Token Extensions program (Token-2022)
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// SPL account layouts. The mint account is a fixed 82-byte structure;
// token accounts are 165 bytes with the balance at offset 64.
const (
	MintAccountSize  = 82
	TokenAccountSize = 165

	tokenAccountAmountOffset = 64
)

// parseMintAccount decodes the raw data of an SPL mint account.
//
// Mint layout:
//
//	[0..4]    mint authority COption tag (u32 LE, 0 = none)
//	[4..36]   mint authority pubkey
//	[36..44]  supply (u64 LE)
//	[44]      decimals (u8)
//	[45]      is_initialized (u8)
//	[46..50]  freeze authority COption tag (u32 LE, 0 = none)
//	[50..82]  freeze authority pubkey
func parseMintAccount(data []byte) (MintInfo, error) {
	if len(data) < MintAccountSize {
		return MintInfo{}, fmt.Errorf("mint account data too short: %d bytes", len(data))
	}

	mintAuthTag := binary.LittleEndian.Uint32(data[0:4])
	freezeAuthTag := binary.LittleEndian.Uint32(data[46:50])

	return MintInfo{
		Supply:                 binary.LittleEndian.Uint64(data[36:44]),
		Decimals:               data[44],
		Initialized:            data[45] != 0,
		MintAuthorityRevoked:   mintAuthTag == 0,
		FreezeAuthorityRevoked: freezeAuthTag == 0,
	}, nil
}

// parseTokenAccountAmount extracts the balance from raw SPL token
// account data. It also accepts a bare 8-byte data slice, which is what
// a dataSlice-limited getProgramAccounts call returns.
func parseTokenAccountAmount(data []byte) (uint64, error) {
	switch {
	case len(data) >= TokenAccountSize:
		return binary.LittleEndian.Uint64(data[tokenAccountAmountOffset : tokenAccountAmountOffset+8]), nil
	case len(data) == 8:
		return binary.LittleEndian.Uint64(data), nil
	default:
		return 0, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
}

// tokenAmountValue returns the UI-scaled value of a token amount,
// falling back to parsing the string fields when the float is absent.
func tokenAmountValue(ui *rpc.UiTokenAmount) float64 {
	if ui == nil {
		return 0
	}
	if ui.UiAmount != nil {
		return *ui.UiAmount
	}
	if v, err := strconv.ParseFloat(ui.UiAmountString, 64); err == nil {
		return v
	}
	return 0
}

// classifyParams carries the addresses a balance-change classification
// is judged against. PoolVault may be the zero key when the pool's
// token vault is unknown; LP removal detection is skipped in that case.
type classifyParams struct {
	Mint      solana.PublicKey
	Creator   solana.PublicKey
	PoolVault solana.PublicKey
}

// classifyTokenMovement inspects the pre/post token balances of a
// confirmed transaction and reduces it to a single activity record for
// the given mint. accountKeys must include any addresses loaded from
// lookup tables, in the order the runtime indexes them.
//
// Classification priority: LP removal, then developer sell, then plain
// sell or buy on net flow, then other. The LP amount is expressed as a
// percentage of the vault's pre-transaction balance; everything else is
// UI token units.
func classifyTokenMovement(accountKeys []solana.PublicKey, meta *rpc.TransactionMeta, p classifyParams) risk.TransactionRecord {
	other := risk.TransactionRecord{Kind: risk.KindOther}
	if meta == nil {
		return other
	}

	type balance struct {
		pre, post float64
		owner     solana.PublicKey
		account   solana.PublicKey
	}
	balances := make(map[uint16]*balance)

	lookup := func(idx uint16) *balance {
		b, ok := balances[idx]
		if !ok {
			b = &balance{}
			if int(idx) < len(accountKeys) {
				b.account = accountKeys[idx]
			}
			balances[idx] = b
		}
		return b
	}

	for i := range meta.PreTokenBalances {
		tb := &meta.PreTokenBalances[i]
		if !tb.Mint.Equals(p.Mint) {
			continue
		}
		b := lookup(tb.AccountIndex)
		b.pre = tokenAmountValue(tb.UiTokenAmount)
		if tb.Owner != nil {
			b.owner = *tb.Owner
		}
	}
	for i := range meta.PostTokenBalances {
		tb := &meta.PostTokenBalances[i]
		if !tb.Mint.Equals(p.Mint) {
			continue
		}
		b := lookup(tb.AccountIndex)
		b.post = tokenAmountValue(tb.UiTokenAmount)
		if tb.Owner != nil {
			b.owner = *tb.Owner
		}
	}
	if len(balances) == 0 {
		return other
	}

	var (
		devOutflow   float64
		maxOutflow   float64
		maxInflow    float64
		vaultPre     float64
		vaultOutflow float64
	)
	for _, b := range balances {
		delta := b.post - b.pre
		if !p.PoolVault.IsZero() && b.account.Equals(p.PoolVault) {
			vaultPre = b.pre
			if delta < 0 {
				vaultOutflow = -delta
			}
			continue
		}
		if !p.Creator.IsZero() && b.owner.Equals(p.Creator) {
			if delta < 0 {
				devOutflow += -delta
			}
			continue
		}
		if delta < 0 && -delta > maxOutflow {
			maxOutflow = -delta
		}
		if delta > 0 && delta > maxInflow {
			maxInflow = delta
		}
	}

	if vaultOutflow > 0 && vaultPre > 0 {
		return risk.TransactionRecord{
			Kind:   risk.KindLPRemove,
			Amount: vaultOutflow / vaultPre * 100,
		}
	}
	if devOutflow > 0 {
		return risk.TransactionRecord{Kind: risk.KindDevSell, Amount: devOutflow}
	}
	if maxOutflow > 0 {
		return risk.TransactionRecord{Kind: risk.KindSell, Amount: maxOutflow}
	}
	if maxInflow > 0 {
		return risk.TransactionRecord{Kind: risk.KindBuy, Amount: maxInflow}
	}
	return other
}

// transactionAccountKeys flattens the static message keys plus any
// addresses loaded from lookup tables into runtime index order.
func transactionAccountKeys(tx *solana.Transaction, meta *rpc.TransactionMeta) []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(tx.Message.AccountKeys))
	keys = append(keys, tx.Message.AccountKeys...)
	if meta != nil {
		keys = append(keys, meta.LoadedAddresses.Writable...)
		keys = append(keys, meta.LoadedAddresses.ReadOnly...)
	}
	return keys
}
