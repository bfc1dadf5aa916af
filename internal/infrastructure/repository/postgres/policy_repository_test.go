package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

func newPolicyRepoWithMock(t *testing.T) (*PolicyRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &PolicyRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestUpsertRequiresPolicyID(t *testing.T) {
	repo, mock, done := newPolicyRepoWithMock(t)
	defer done()

	err := repo.Upsert(context.Background(), &domain.Policy{Name: "이름만 있는 정책"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertInsertsPolicy(t *testing.T) {
	repo, mock, done := newPolicyRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO policies").
		WillReturnResult(sqlmock.NewResult(0, 1))

	policy := &domain.Policy{
		PolicyID: "R2024-001",
		Name:     "청년 월세 지원",
		Category: "주거",
		Regions:  []string{"안산"},
	}
	if err := repo.Upsert(context.Background(), policy); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if policy.ID == "" {
		t.Fatalf("Upsert must assign a surrogate id")
	}
	if policy.UpdatedAt.IsZero() {
		t.Fatalf("Upsert must stamp updated_at")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByPolicyIDsBuildsPlaceholdersAndScans(t *testing.T) {
	repo, mock, done := newPolicyRepoWithMock(t)
	defer done()

	columns := []string{
		"id", "policy_id", "name", "category", "sub_category", "summary",
		"content", "support_content", "agency", "regions", "job_types",
		"keywords", "application_url", "age_min", "age_max",
		"apply_period", "apply_start", "apply_end", "earn_min", "earn_max",
		"earn_etc", "created_at", "updated_at",
	}
	rows := sqlmock.NewRows(columns).AddRow(
		"uuid-1", "R2024-001", "청년 월세 지원", "주거", "주거비지원", "",
		"월세 지원", "월 최대 20만원", "국토교통부", []byte(`["전국"]`), []byte(`[]`),
		"월세, 주거", "https://youthcenter.go.kr/apply", 19, 34,
		"20240101 ~ 20241231", "", "", 0, 200000,
		"", time.Now().UTC(), time.Now().UTC(),
	)

	mock.ExpectQuery("WHERE policy_id IN").
		WithArgs("R2024-001", "R2024-002").
		WillReturnRows(rows)

	// Duplicate and blank ids are dropped before the query.
	got, err := repo.GetByPolicyIDs(context.Background(), []string{"R2024-001", "", "R2024-002", "R2024-001"})
	if err != nil {
		t.Fatalf("GetByPolicyIDs() error = %v", err)
	}
	p, ok := got["R2024-001"]
	if !ok {
		t.Fatalf("expected R2024-001 in result map, got %v", got)
	}
	if p.Name != "청년 월세 지원" || p.Eligibility.AgeMax == nil || *p.Eligibility.AgeMax != 34 {
		t.Fatalf("unexpected policy %+v", p)
	}
	if p.Earn.MinAmount == nil || *p.Earn.MinAmount != 0 {
		t.Fatalf("zero earn min must scan as explicit zero, got %v", p.Earn.MinAmount)
	}
	if len(p.Regions) != 1 || p.Regions[0] != "전국" {
		t.Fatalf("regions must unmarshal, got %v", p.Regions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByPolicyIDsEmptyInputSkipsQuery(t *testing.T) {
	repo, mock, done := newPolicyRepoWithMock(t)
	defer done()

	got, err := repo.GetByPolicyIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetByPolicyIDs() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
