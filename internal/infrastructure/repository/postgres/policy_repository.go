package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

type PolicyRepository struct {
	db *sql.DB
}

func NewPolicyRepository(db *sql.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PolicyRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS policies (
	id TEXT PRIMARY KEY,
	policy_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	category TEXT,
	sub_category TEXT,
	summary TEXT,
	content TEXT,
	support_content TEXT,
	agency TEXT,
	regions JSONB NOT NULL DEFAULT '[]'::jsonb,
	job_types JSONB NOT NULL DEFAULT '[]'::jsonb,
	keywords TEXT,
	application_url TEXT,
	age_min INTEGER,
	age_max INTEGER,
	apply_period TEXT,
	apply_start TEXT,
	apply_end TEXT,
	earn_min INTEGER,
	earn_max INTEGER,
	earn_etc TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policies_category ON policies(category);
CREATE INDEX IF NOT EXISTS idx_policies_updated_at ON policies(updated_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *PolicyRepository) Upsert(ctx context.Context, policy *domain.Policy) error {
	if policy.PolicyID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upsert policy", fmt.Errorf("policy_id is required"))
	}
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now

	regionsJSON, err := json.Marshal(policy.Regions)
	if err != nil {
		return fmt.Errorf("marshal regions: %w", err)
	}
	jobTypesJSON, err := json.Marshal(policy.JobTypes)
	if err != nil {
		return fmt.Errorf("marshal job types: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO policies (
	id, policy_id, name, category, sub_category, summary, content, support_content, agency,
	regions, job_types, keywords, application_url, age_min, age_max,
	apply_period, apply_start, apply_end, earn_min, earn_max, earn_etc, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
ON CONFLICT (policy_id) DO UPDATE SET
	name = EXCLUDED.name,
	category = EXCLUDED.category,
	sub_category = EXCLUDED.sub_category,
	summary = EXCLUDED.summary,
	content = EXCLUDED.content,
	support_content = EXCLUDED.support_content,
	agency = EXCLUDED.agency,
	regions = EXCLUDED.regions,
	job_types = EXCLUDED.job_types,
	keywords = EXCLUDED.keywords,
	application_url = EXCLUDED.application_url,
	age_min = EXCLUDED.age_min,
	age_max = EXCLUDED.age_max,
	apply_period = EXCLUDED.apply_period,
	apply_start = EXCLUDED.apply_start,
	apply_end = EXCLUDED.apply_end,
	earn_min = EXCLUDED.earn_min,
	earn_max = EXCLUDED.earn_max,
	earn_etc = EXCLUDED.earn_etc,
	updated_at = EXCLUDED.updated_at
`,
		policy.ID, policy.PolicyID, policy.Name, policy.Category, policy.SubCategory,
		policy.Summary, policy.Content, policy.SupportContent, policy.Agency,
		regionsJSON, jobTypesJSON, policy.Keywords, policy.ApplicationURL,
		policy.Eligibility.AgeMin, policy.Eligibility.AgeMax,
		policy.Dates.ApplyPeriod, policy.Dates.ApplyStart, policy.Dates.ApplyEnd,
		policy.Earn.MinAmount, policy.Earn.MaxAmount, policy.Earn.EtcContent,
		policy.CreatedAt, policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert policy: %w", err)
	}
	return nil
}

func (r *PolicyRepository) GetByPolicyIDs(ctx context.Context, policyIDs []string) (map[string]*domain.Policy, error) {
	out := make(map[string]*domain.Policy, len(policyIDs))
	if len(policyIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, 0, len(policyIDs))
	args := make([]any, 0, len(policyIDs))
	seen := make(map[string]struct{}, len(policyIDs))
	for _, id := range policyIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	if len(args) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
SELECT id, policy_id, name, COALESCE(category, ''), COALESCE(sub_category, ''), COALESCE(summary, ''),
	COALESCE(content, ''), COALESCE(support_content, ''), COALESCE(agency, ''),
	regions, job_types, COALESCE(keywords, ''), COALESCE(application_url, ''),
	age_min, age_max,
	COALESCE(apply_period, ''), COALESCE(apply_start, ''), COALESCE(apply_end, ''),
	earn_min, earn_max, COALESCE(earn_etc, ''), created_at, updated_at
FROM policies
WHERE policy_id IN (%s)
`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Policy
		var regionsRaw, jobTypesRaw []byte
		if err := rows.Scan(
			&p.ID, &p.PolicyID, &p.Name, &p.Category, &p.SubCategory, &p.Summary,
			&p.Content, &p.SupportContent, &p.Agency,
			&regionsRaw, &jobTypesRaw, &p.Keywords, &p.ApplicationURL,
			&p.Eligibility.AgeMin, &p.Eligibility.AgeMax,
			&p.Dates.ApplyPeriod, &p.Dates.ApplyStart, &p.Dates.ApplyEnd,
			&p.Earn.MinAmount, &p.Earn.MaxAmount, &p.Earn.EtcContent,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		if err := json.Unmarshal(regionsRaw, &p.Regions); err != nil {
			return nil, fmt.Errorf("unmarshal regions: %w", err)
		}
		if err := json.Unmarshal(jobTypesRaw, &p.JobTypes); err != nil {
			return nil, fmt.Errorf("unmarshal job types: %w", err)
		}
		policy := p
		out[p.PolicyID] = &policy
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return out, nil
}
