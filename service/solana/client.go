package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/metrics"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real
// Solana nodes.
type RPCClient interface {
	GetAccountInfo(
		ctx context.Context,
		account solana.PublicKey,
	) (*rpc.GetAccountInfoResult, error)

	GetTokenSupply(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenSupplyResult, error)

	GetTokenLargestAccounts(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenLargestAccountsResult, error)

	GetProgramAccounts(
		ctx context.Context,
		program solana.PublicKey,
		opts *rpc.GetProgramAccountsOpts,
	) (rpc.GetProgramAccountsResult, error)

	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)
}

// Client inspects SPL tokens over Solana RPC. It wraps the raw RPC
// client with the domain-specific reads the analysis pipeline needs:
// mint authority state, holder distribution, and recent activity.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", rpc host)
}

// NewClient creates a new token inspector.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet",
// "devnet", or RPC hostname). If metrics is nil, no metrics are recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// GetMintInfo fetches and parses a token's mint account.
func (c *Client) GetMintInfo(ctx context.Context, mint solana.PublicKey) (MintInfo, error) {
	start := time.Now()
	result, err := c.rpc.GetAccountInfo(ctx, mint)
	c.recordRPC("GetAccountInfo", err, time.Since(start))
	if err != nil {
		return MintInfo{}, fmt.Errorf("failed to get mint account %s: %w", mint, err)
	}
	if result == nil || result.Value == nil {
		return MintInfo{}, fmt.Errorf("mint account %s not found", mint)
	}

	info, err := parseMintAccount(result.Value.Data.GetBinary())
	if err != nil {
		return MintInfo{}, fmt.Errorf("failed to parse mint account %s: %w", mint, err)
	}

	c.logger.DebugContext(ctx, "fetched mint info",
		"mint", mint.String(),
		"supply", info.Supply,
		"mint_authority_revoked", info.MintAuthorityRevoked,
		"freeze_authority_revoked", info.FreezeAuthorityRevoked,
	)
	return info, nil
}

// GetHolderDistribution computes the holder count, top-10 concentration,
// and the creator's share of supply for a mint.
//
// The holder count comes from a getProgramAccounts scan filtered to
// token accounts of this mint, sliced down to the 8-byte balance field.
// That scan is cheap for freshly launched tokens, which is the only
// thing this service monitors.
func (c *Client) GetHolderDistribution(ctx context.Context, mint, creator solana.PublicKey) (HolderDistribution, error) {
	var dist HolderDistribution

	start := time.Now()
	supplyRes, err := c.rpc.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
	c.recordRPC("GetTokenSupply", err, time.Since(start))
	if err != nil {
		return dist, fmt.Errorf("failed to get token supply for %s: %w", mint, err)
	}
	if supplyRes == nil || supplyRes.Value == nil {
		return dist, fmt.Errorf("no supply returned for %s", mint)
	}
	supply := tokenAmountValue(supplyRes.Value)
	if supply <= 0 {
		// A zero-supply mint has no holders to distribute.
		return dist, nil
	}

	start = time.Now()
	largest, err := c.rpc.GetTokenLargestAccounts(ctx, mint, rpc.CommitmentConfirmed)
	c.recordRPC("GetTokenLargestAccounts", err, time.Since(start))
	if err != nil {
		return dist, fmt.Errorf("failed to get largest accounts for %s: %w", mint, err)
	}

	var top10 float64
	if largest != nil {
		for i, acct := range largest.Value {
			if i >= 10 || acct == nil {
				break
			}
			top10 += tokenAmountValue(&acct.UiTokenAmount)
		}
	}
	dist.Top10HoldingsPct = top10 / supply * 100

	count, err := c.countHolders(ctx, mint)
	if err != nil {
		return dist, err
	}
	dist.HolderCount = count

	devPct, err := c.creatorHoldingsPct(ctx, mint, creator, supply, supplyRes.Value.Decimals)
	if err != nil {
		return dist, err
	}
	dist.DevHoldingsPct = devPct

	c.logger.DebugContext(ctx, "computed holder distribution",
		"mint", mint.String(),
		"holders", dist.HolderCount,
		"top10_pct", dist.Top10HoldingsPct,
		"dev_pct", dist.DevHoldingsPct,
	)
	return dist, nil
}

// countHolders counts token accounts of the mint with a non-zero balance.
func (c *Client) countHolders(ctx context.Context, mint solana.PublicKey) (int, error) {
	sliceOffset := uint64(tokenAccountAmountOffset)
	sliceLength := uint64(8)
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		DataSlice: &rpc.DataSlice{
			Offset: &sliceOffset,
			Length: &sliceLength,
		},
		Filters: []rpc.RPCFilter{
			{DataSize: TokenAccountSize},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  solana.Base58(mint.Bytes()),
				},
			},
		},
	}

	start := time.Now()
	accounts, err := c.rpc.GetProgramAccounts(ctx, TokenProgramID, opts)
	c.recordRPC("GetProgramAccounts", err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("failed to scan token accounts for %s: %w", mint, err)
	}

	count := 0
	for _, acct := range accounts {
		if acct == nil || acct.Account == nil {
			continue
		}
		amount, err := parseTokenAccountAmount(acct.Account.Data.GetBinary())
		if err != nil {
			continue
		}
		if amount > 0 {
			count++
		}
	}
	return count, nil
}

// creatorHoldingsPct reads the creator's associated token account and
// returns its balance as a percentage of supply. A missing ATA means
// the creator holds nothing.
func (c *Client) creatorHoldingsPct(ctx context.Context, mint, creator solana.PublicKey, supply float64, decimals uint8) (float64, error) {
	if creator.IsZero() || supply <= 0 {
		return 0, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(creator, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive creator token account: %w", err)
	}

	start := time.Now()
	result, err := c.rpc.GetAccountInfo(ctx, ata)
	c.recordRPC("GetAccountInfo", err, time.Since(start))
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get creator token account: %w", err)
	}
	if result == nil || result.Value == nil {
		return 0, nil
	}

	raw, err := parseTokenAccountAmount(result.Value.Data.GetBinary())
	if err != nil {
		return 0, fmt.Errorf("failed to parse creator token account: %w", err)
	}

	scale := 1.0
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}
	return float64(raw) / scale / supply * 100, nil
}

// FactorParams identifies the token to collect risk factors for.
// Liquidity fields are pass-through: pool liquidity and lock status come
// from the launch feed at registration time, not from chain state.
type FactorParams struct {
	Mint            solana.PublicKey
	Creator         solana.PublicKey
	LiquidityUSD    float64
	LiquidityLocked bool
}

// GetRiskFactors assembles the full factor set for the risk scorer from
// the mint account and the holder distribution.
func (c *Client) GetRiskFactors(ctx context.Context, p FactorParams) (risk.Factors, error) {
	info, err := c.GetMintInfo(ctx, p.Mint)
	if err != nil {
		return risk.Factors{}, err
	}

	dist, err := c.GetHolderDistribution(ctx, p.Mint, p.Creator)
	if err != nil {
		return risk.Factors{}, err
	}

	return risk.Factors{
		MintAuthorityRevoked:   info.MintAuthorityRevoked,
		FreezeAuthorityRevoked: info.FreezeAuthorityRevoked,
		HolderCount:            dist.HolderCount,
		Top10HoldingsPct:       dist.Top10HoldingsPct,
		DevHoldingsPct:         dist.DevHoldingsPct,
		LiquidityLocked:        p.LiquidityLocked,
		LiquidityUSD:           p.LiquidityUSD,
	}, nil
}

// ActivityParams contains parameters for fetching token activity.
type ActivityParams struct {
	Mint      solana.PublicKey
	Creator   solana.PublicKey
	PoolVault solana.PublicKey // zero when the pool vault is unknown
	Limit     int
}

// GetTokenActivity fetches the most recent transactions touching the
// mint and classifies each into an activity record for the pattern
// detector. Failed transactions and ones that cannot be fetched after
// retries are skipped rather than failing the whole poll.
func (c *Client) GetTokenActivity(ctx context.Context, params ActivityParams) ([]risk.TransactionRecord, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Limit: &params.Limit,
	}

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddress(ctx, params.Mint, opts)
	duration := time.Since(start)
	c.recordRPC("GetSignaturesForAddress", err, duration)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get signatures",
			"mint", params.Mint.String(),
			"error", err,
		)
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordRPCSignaturesPerCall(c.endpoint, float64(len(signatures)))
	}

	c.logger.DebugContext(ctx, "fetched transaction signatures",
		"mint", params.Mint.String(),
		"count", len(signatures),
	)

	classify := classifyParams{
		Mint:      params.Mint,
		Creator:   params.Creator,
		PoolVault: params.PoolVault,
	}

	records := make([]risk.TransactionRecord, 0, len(signatures))
	for _, sig := range signatures {
		if sig.Err != nil {
			continue
		}

		result, err := c.fetchTransaction(ctx, sig.Signature)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to get transaction details after retries, skipping",
				"signature", sig.Signature.String(),
				"error", err,
			)
			continue
		}
		if result == nil || result.Meta == nil {
			continue
		}

		tx, err := result.Transaction.GetTransaction()
		if err != nil {
			c.logger.WarnContext(ctx, "failed to decode transaction, skipping",
				"signature", sig.Signature.String(),
				"error", err,
			)
			continue
		}

		record := classifyTokenMovement(transactionAccountKeys(tx, result.Meta), result.Meta, classify)
		records = append(records, record)
	}

	c.logger.InfoContext(ctx, "fetched and classified token activity",
		"mint", params.Mint.String(),
		"count", len(records),
	)
	return records, nil
}

// fetchTransaction gets full transaction details with retry and
// rate-limit backoff. Public mainnet RPC tolerates roughly 1-2 RPS, so
// backoff on 429 is generous.
func (c *Client) fetchTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	const maxAttempts = 3
	var result *rpc.GetTransactionResult
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		start := time.Now()
		result, err = c.rpc.GetTransaction(ctx, signature, opts)
		c.recordRPC("GetTransaction", err, time.Since(start))
		if err == nil {
			return result, nil
		}

		if strings.Contains(err.Error(), "429") {
			backoff := time.Duration(2<<uint(attempt)) * time.Second
			c.logger.WarnContext(ctx, "rate limited, sleeping before retry",
				"signature", signature.String(),
				"attempt", attempt+1,
				"backoff_seconds", backoff.Seconds(),
			)
			if c.metrics != nil {
				c.metrics.RecordRateLimitHit(c.endpoint)
				c.metrics.RecordRPCRetry("GetTransaction", "rate_limit")
			}
			time.Sleep(backoff)
			continue
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		c.logger.WarnContext(ctx, "failed to get transaction on attempt",
			"signature", signature.String(),
			"attempt", attempt+1,
			"error", err,
			"backoff_seconds", backoff.Seconds(),
		)
		if c.metrics != nil {
			c.metrics.RecordRPCRetry("GetTransaction", "timeout_or_error")
		}
		time.Sleep(backoff)
	}
	return nil, err
}

func (c *Client) recordRPC(method string, err error, d time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, d.Seconds())
}
