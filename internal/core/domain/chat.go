package domain

import "time"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatSession struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type StoredMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResult is what the caller receives: exactly one well-formed answer
// string, never a partial one. EvidenceCount and Revised feed observability
// and are not part of the wire response.
type ChatResult struct {
	SessionID string         `json:"session_id"`
	Answer    string         `json:"answer"`
	Evidence  EvidenceSource `json:"evidence_source"`
	Regions   []string       `json:"regions,omitempty"`

	EvidenceCount int  `json:"-"`
	Revised       bool `json:"-"`
}

// RegionIntent is the strict-JSON contract of the region/intent extractor.
type RegionIntent struct {
	InDomain bool     `json:"is_in_domain"`
	Regions  []string `json:"regions"`
	Reason   string   `json:"reason"`
}

// SurveyProfile is the structured query shape supplied by the user-profile
// collaborator.
type SurveyProfile struct {
	AgeBracket      string   `json:"age"`
	Region          string   `json:"region"`
	EducationLevel  string   `json:"education_level"`
	EducationStatus string   `json:"education_status"`
	JobStatus       string   `json:"job_status"`
	IncomeLevel     string   `json:"income_level"`
	Interests       []string `json:"interests"`
}

// ChatLimits bounds every external call made by one pipeline run.
type ChatLimits struct {
	ExtractTimeout  time.Duration
	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
	VerifyTimeout   time.Duration

	CandidateLimit int
	HistoryWindow  int
	WebSearchLimit int
	EmbeddingDim   int
	TrustedDomain  string
}

// WebResult is one hit from the external web-search provider.
type WebResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
