package domain

import "time"

// Policy is the full metadata record for one government support program,
// as synced from the youth-center feed into the relational store.
type Policy struct {
	ID             string      `json:"id"`
	PolicyID       string      `json:"policy_id"`
	Name           string      `json:"name"`
	Category       string      `json:"category,omitempty"`
	SubCategory    string      `json:"sub_category,omitempty"`
	Summary        string      `json:"summary,omitempty"`
	Content        string      `json:"content,omitempty"`
	SupportContent string      `json:"support_content,omitempty"`
	Agency         string      `json:"agency,omitempty"`
	Regions        []string    `json:"regions,omitempty"`
	JobTypes       []string    `json:"job_types,omitempty"`
	Keywords       string      `json:"keywords,omitempty"`
	ApplicationURL string      `json:"application_url,omitempty"`
	Eligibility    Eligibility `json:"eligibility"`
	Dates          PolicyDates `json:"dates"`
	Earn           Earn        `json:"earn"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Eligibility carries age bounds as typed optionals. A nil bound means the
// source record did not state one; zero means "no limit" in the feed encoding.
type Eligibility struct {
	AgeMin *int `json:"age_min,omitempty"`
	AgeMax *int `json:"age_max,omitempty"`
}

type PolicyDates struct {
	ApplyPeriod     string `json:"apply_period,omitempty"`
	ApplyPeriodType string `json:"apply_period_type,omitempty"`
	ApplyStart      string `json:"apply_start,omitempty"`
	ApplyEnd        string `json:"apply_end,omitempty"`
}

// Earn describes the monetary support range. Min/Max follow the same
// nil-vs-zero convention as Eligibility.
type Earn struct {
	MinAmount  *int   `json:"min_amount,omitempty"`
	MaxAmount  *int   `json:"max_amount,omitempty"`
	EtcContent string `json:"etc_content,omitempty"`
}

// Candidate is one chunk hit returned by vector search, before any filtering.
// Score is an opaque ranking key supplied by the index and is never mutated;
// derived scores are composed into separate fields downstream.
type Candidate struct {
	PolicyID   string   `json:"policy_id"`
	ChunkID    string   `json:"chunk_id,omitempty"`
	Title      string   `json:"title"`
	Region     string   `json:"region,omitempty"`
	Category   string   `json:"category,omitempty"`
	Content    string   `json:"content,omitempty"`
	Keywords   string   `json:"keywords,omitempty"`
	Score      float64  `json:"score"`
	FinalScore float64  `json:"final_score"`
	Regions    []string `json:"regions,omitempty"`
}

// RankedResult is a Candidate after dedup/partition/merge with the display
// fields attached and large raw content stripped for transport.
type RankedResult struct {
	PolicyID    string  `json:"policy_id"`
	Title       string  `json:"title"`
	Region      string  `json:"region,omitempty"`
	Category    string  `json:"category,omitempty"`
	Score       float64 `json:"score"`
	FinalScore  float64 `json:"final_score"`
	AmountText  string  `json:"amount_text,omitempty"`
	SummaryText string  `json:"summary_text,omitempty"`
}

// PolicyGroup is the Mode B unit: the best-scoring chunk for one policy,
// joined to the full policy record. Policy is nil when the metadata lookup
// failed; the group is still emitted so result counts stay stable.
type PolicyGroup struct {
	PolicyID  string  `json:"policy_id"`
	BestScore float64 `json:"score"`
	BestChunk string  `json:"reason_snippet"`
	ChunkID   string  `json:"chunk_id,omitempty"`
	Policy    *Policy `json:"policy,omitempty"`
}

// SearchFilter is the structured filter pushed down to the vector index
// when supported and applied post-hoc otherwise.
type SearchFilter struct {
	Region     string
	Categories []string
}
