package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
)

// Store provides database operations for the service.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Token represents a registered token that the service monitors.
type Token struct {
	Mint            string
	Name            string
	Symbol          string
	Creator         string
	PoolVault       *string // pool token vault, nil when unknown
	LiquidityUSD    float64
	LiquidityLocked bool
	PollInterval    time.Duration
	LastPollTime    *time.Time
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateTokenParams contains the parameters for registering a token.
type CreateTokenParams struct {
	Mint            string
	Name            string
	Symbol          string
	Creator         string
	PoolVault       *string
	LiquidityUSD    float64
	LiquidityLocked bool
	PollInterval    time.Duration
	Status          string
}

const tokenColumns = `mint, name, symbol, creator, pool_vault, liquidity_usd,
	liquidity_locked, poll_interval, last_poll_time, status, created_at, updated_at`

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	var poolVault pgtype.Text
	var interval pgtype.Interval
	var lastPoll pgtype.Timestamptz
	err := row.Scan(
		&t.Mint, &t.Name, &t.Symbol, &t.Creator, &poolVault, &t.LiquidityUSD,
		&t.LiquidityLocked, &interval, &lastPoll, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.PoolVault = stringPtrFromPgtext(poolVault)
	t.PollInterval = durationFromPgInterval(interval)
	t.LastPollTime = timePtrFromPgTimestamptz(lastPoll)
	return &t, nil
}

// CreateToken registers a new token for monitoring.
func (s *Store) CreateToken(ctx context.Context, params CreateTokenParams) (*Token, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tokens (mint, name, symbol, creator, pool_vault, liquidity_usd,
			liquidity_locked, poll_interval, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+tokenColumns,
		params.Mint, params.Name, params.Symbol, params.Creator,
		pgtextFromStringPtr(params.PoolVault), params.LiquidityUSD,
		params.LiquidityLocked, pgIntervalFromDuration(params.PollInterval), params.Status,
	)
	return scanToken(row)
}

// GetToken retrieves a token by its mint address.
func (s *Store) GetToken(ctx context.Context, mint string) (*Token, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE mint = $1`, mint)
	return scanToken(row)
}

// ListTokens retrieves all registered tokens.
func (s *Store) ListTokens(ctx context.Context) ([]*Token, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tokenColumns+` FROM tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTokens(rows)
}

// ListActiveTokens retrieves all active tokens ordered by last poll time,
// never-polled tokens first.
func (s *Store) ListActiveTokens(ctx context.Context) ([]*Token, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tokenColumns+` FROM tokens
		WHERE status = 'active'
		ORDER BY last_poll_time ASC NULLS FIRST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTokens(rows)
}

func collectTokens(rows pgx.Rows) ([]*Token, error) {
	tokens := []*Token{}
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// UpdateTokenPollTime updates the last poll time for a token.
func (s *Store) UpdateTokenPollTime(ctx context.Context, mint string, pollTime time.Time) (*Token, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tokens SET last_poll_time = $2, updated_at = now()
		WHERE mint = $1
		RETURNING `+tokenColumns,
		mint, pgtype.Timestamptz{Time: pollTime, Valid: true},
	)
	return scanToken(row)
}

// UpdateTokenPollInterval updates the polling interval for a token.
func (s *Store) UpdateTokenPollInterval(ctx context.Context, mint string, interval time.Duration) (*Token, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tokens SET poll_interval = $2, updated_at = now()
		WHERE mint = $1
		RETURNING `+tokenColumns,
		mint, pgIntervalFromDuration(interval),
	)
	return scanToken(row)
}

// UpdateTokenStatus updates the status of a token.
func (s *Store) UpdateTokenStatus(ctx context.Context, mint string, status string) (*Token, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tokens SET status = $2, updated_at = now()
		WHERE mint = $1
		RETURNING `+tokenColumns,
		mint, status,
	)
	return scanToken(row)
}

// DeleteToken removes a token from monitoring. Its assessments and
// alerts are removed with it.
func (s *Store) DeleteToken(ctx context.Context, mint string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE mint = $1`, mint)
	return err
}

// TokenExists checks if a token is registered.
func (s *Store) TokenExists(ctx context.Context, mint string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tokens WHERE mint = $1)`, mint,
	).Scan(&exists)
	return exists, err
}

// Assessment is one stored risk evaluation of a token.
type Assessment struct {
	ID         int64
	Mint       string
	Score      float64
	RiskLevel  string
	Suspicious bool
	Patterns   []string
	Confidence float64
	Factors    risk.Factors
	Breakdown  []risk.Contribution
	Commentary *string
	CreatedAt  time.Time
}

// CreateAssessmentParams contains the parameters for storing an assessment.
type CreateAssessmentParams struct {
	Mint       string
	Score      float64
	RiskLevel  string
	Suspicious bool
	Patterns   []string
	Confidence float64
	Factors    risk.Factors
	Breakdown  []risk.Contribution
	Commentary *string
}

const assessmentColumns = `id, mint, score, risk_level, suspicious, patterns,
	confidence, factors, breakdown, commentary, created_at`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	var commentary pgtype.Text
	err := row.Scan(
		&a.ID, &a.Mint, &a.Score, &a.RiskLevel, &a.Suspicious, &a.Patterns,
		&a.Confidence, &a.Factors, &a.Breakdown, &commentary, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Commentary = stringPtrFromPgtext(commentary)
	if a.Patterns == nil {
		a.Patterns = []string{}
	}
	return &a, nil
}

// CreateAssessment stores a risk assessment for a token.
func (s *Store) CreateAssessment(ctx context.Context, params CreateAssessmentParams) (*Assessment, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO assessments (mint, score, risk_level, suspicious, patterns,
			confidence, factors, breakdown, commentary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+assessmentColumns,
		params.Mint, params.Score, params.RiskLevel, params.Suspicious,
		params.Patterns, params.Confidence, params.Factors, params.Breakdown,
		pgtextFromStringPtr(params.Commentary),
	)
	return scanAssessment(row)
}

// GetLatestAssessment retrieves the most recent assessment for a token.
func (s *Store) GetLatestAssessment(ctx context.Context, mint string) (*Assessment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+assessmentColumns+` FROM assessments
		WHERE mint = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, mint)
	return scanAssessment(row)
}

// UpdateAssessmentCommentary attaches AI commentary to a stored
// assessment. Commentary is generated after the assessment row is
// written so a narration failure never blocks the audit trail.
func (s *Store) UpdateAssessmentCommentary(ctx context.Context, id int64, commentary string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE assessments SET commentary = $2 WHERE id = $1`,
		id, commentary)
	return err
}

// ListAssessmentsByTokenParams contains pagination parameters.
type ListAssessmentsByTokenParams struct {
	Mint   string
	Limit  int32
	Offset int32
}

// ListAssessmentsByToken retrieves assessments for a token, newest first.
func (s *Store) ListAssessmentsByToken(ctx context.Context, params ListAssessmentsByTokenParams) ([]*Assessment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+assessmentColumns+` FROM assessments
		WHERE mint = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		params.Mint, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assessments := []*Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

// DeleteAssessmentsOlderThan deletes assessments older than the given time.
func (s *Store) DeleteAssessmentsOlderThan(ctx context.Context, before time.Time) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM assessments WHERE created_at < $1`,
		pgtype.Timestamptz{Time: before, Valid: true})
	return err
}

// Alert is a stored high-risk notification.
type Alert struct {
	ID        int64
	Mint      string
	Score     float64
	RiskLevel string
	Patterns  []string
	Message   string
	Tweeted   bool
	CreatedAt time.Time
}

// CreateAlertParams contains the parameters for storing an alert.
type CreateAlertParams struct {
	Mint      string
	Score     float64
	RiskLevel string
	Patterns  []string
	Message   string
}

const alertColumns = `id, mint, score, risk_level, patterns, message, tweeted, created_at`

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(
		&a.ID, &a.Mint, &a.Score, &a.RiskLevel, &a.Patterns, &a.Message,
		&a.Tweeted, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.Patterns == nil {
		a.Patterns = []string{}
	}
	return &a, nil
}

// CreateAlert stores an alert.
func (s *Store) CreateAlert(ctx context.Context, params CreateAlertParams) (*Alert, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO alerts (mint, score, risk_level, patterns, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+alertColumns,
		params.Mint, params.Score, params.RiskLevel, params.Patterns, params.Message,
	)
	return scanAlert(row)
}

// ListAlertsParams contains filter and pagination parameters. An empty
// Mint lists alerts across all tokens.
type ListAlertsParams struct {
	Mint   string
	Limit  int32
	Offset int32
}

// ListAlerts retrieves alerts, newest first.
func (s *Store) ListAlerts(ctx context.Context, params ListAlertsParams) ([]*Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE ($1 = '' OR mint = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		params.Mint, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []*Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MarkAlertTweeted records that an alert was posted to Twitter.
func (s *Store) MarkAlertTweeted(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE alerts SET tweeted = true WHERE id = $1`, id)
	return err
}

// CountTweetsSince counts alerts posted to Twitter since the given
// time. The poster uses this to restore its daily budget on restart.
func (s *Store) CountTweetsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM alerts WHERE tweeted AND created_at >= $1`,
		pgtype.Timestamptz{Time: since, Valid: true},
	).Scan(&count)
	return count, err
}

// Stats is an aggregate snapshot of the service's monitoring state.
type Stats struct {
	TotalTokens      int64
	ActiveTokens     int64
	TotalAssessments int64
	TotalAlerts      int64
	HighRiskTokens   int64
	AvgScore24h      float64
}

// GetStats computes aggregate statistics across all monitored tokens.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM tokens),
			(SELECT count(*) FROM tokens WHERE status = 'active'),
			(SELECT count(*) FROM assessments),
			(SELECT count(*) FROM alerts),
			(SELECT count(DISTINCT mint) FROM assessments
				WHERE risk_level = 'HIGH' AND created_at >= now() - interval '24 hours'),
			(SELECT coalesce(avg(score), 0) FROM assessments
				WHERE created_at >= now() - interval '24 hours')`,
	).Scan(
		&st.TotalTokens, &st.ActiveTokens, &st.TotalAssessments,
		&st.TotalAlerts, &st.HighRiskTokens, &st.AvgScore24h,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Helper functions to convert between pgx types and domain types

func pgtextFromStringPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func pgIntervalFromDuration(d time.Duration) pgtype.Interval {
	return pgtype.Interval{
		Microseconds: d.Microseconds(),
		Valid:        true,
	}
}

func durationFromPgInterval(i pgtype.Interval) time.Duration {
	if !i.Valid {
		return 0
	}
	return time.Duration(i.Microseconds) * time.Microsecond
}

func timePtrFromPgTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
