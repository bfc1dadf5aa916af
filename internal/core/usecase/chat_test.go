package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

type embedderFake struct {
	vector  []float32
	vectors [][]float32
	err     error
}

func (f *embedderFake) Embed(context.Context, string, ports.EmbeddingRole) ([]float32, error) {
	return f.vector, f.err
}

func (f *embedderFake) EmbedBatch(_ context.Context, texts []string, _ ports.EmbeddingRole) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vector
	}
	return out, nil
}

type indexFake struct {
	candidates []domain.Candidate
	err        error

	lastTopN   int
	lastFilter domain.SearchFilter
	upserted   int
}

func (f *indexFake) Search(_ context.Context, _ []float32, topN int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	f.lastTopN, f.lastFilter = topN, filter
	return f.candidates, f.err
}

func (f *indexFake) UpsertChunks(_ context.Context, _ *domain.Policy, chunks []string, _ [][]float32) error {
	f.upserted += len(chunks)
	return f.err
}

type webFake struct {
	results   []domain.WebResult
	err       error
	lastQuery string
	calls     int
}

func (f *webFake) Search(_ context.Context, query string, _ int) ([]domain.WebResult, error) {
	f.calls++
	f.lastQuery = query
	return f.results, f.err
}

type storeFake struct {
	policies map[string]*domain.Policy
	err      error
	upserted []*domain.Policy
}

func (f *storeFake) GetByPolicyIDs(context.Context, []string) (map[string]*domain.Policy, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.policies, nil
}

func (f *storeFake) Upsert(_ context.Context, policy *domain.Policy) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, policy)
	return nil
}

type archiveFake struct {
	recent   []domain.ChatMessage
	appended []domain.StoredMessage
	err      error
}

func (f *archiveFake) EnsureSession(_ context.Context, sessionID, userID string) (*domain.ChatSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChatSession{ID: sessionID, UserID: userID}, nil
}

func (f *archiveFake) AppendMessage(_ context.Context, msg domain.StoredMessage) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, msg)
	return nil
}

func (f *archiveFake) RecentMessages(context.Context, string, int) ([]domain.ChatMessage, error) {
	return f.recent, f.err
}

type historyFake struct {
	cached   map[string][]domain.ChatMessage
	appended int
}

func (f *historyFake) Recent(sessionID string) ([]domain.ChatMessage, bool) {
	msgs, ok := f.cached[sessionID]
	return msgs, ok
}

func (f *historyFake) Append(string, string, string) {
	f.appended++
}

type chatFixture struct {
	uc         *ChatUseCase
	extractGen *generatorFake
	gateGen    *generatorFake
	answerGen  *generatorFake
	verifyGen  *generatorFake
	embedder   *embedderFake
	index      *indexFake
	web        *webFake
	store      *storeFake
	archive    *archiveFake
	history    *historyFake
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		extractGen: &generatorFake{jsonText: `{"is_in_domain": true, "regions": ["안산시"]}`},
		gateGen:    &generatorFake{text: "YES"},
		answerGen:  &generatorFake{text: "### [안산 청년 월세 지원]\n* 👤 대상: 만 19~34세"},
		verifyGen:  &generatorFake{detText: "### [안산 청년 월세 지원]\n* 👤 대상: 만 19~39세"},
		embedder:   &embedderFake{vector: []float32{0.1, 0.2, 0.3}},
		index: &indexFake{candidates: []domain.Candidate{
			{PolicyID: "p1", ChunkID: "c1", Title: "안산 청년 월세 지원", Region: "안산", Score: 0.82, Content: "안산시 청년에게 월세를 지원하는 정책입니다."},
			{PolicyID: "p2", ChunkID: "c2", Title: "전국 청년 도약계좌", Region: "전국", Score: 0.75, Content: "전국 청년 대상 자산형성 지원."},
		}},
		web:     &webFake{},
		store:   &storeFake{},
		archive: &archiveFake{},
		history: &historyFake{},
	}

	logger := discardLogger()
	f.uc = NewChatUseCase(
		NewRegionIntentExtractor(f.extractGen, logger),
		f.embedder,
		f.index,
		NewSufficiencyGate(0.7, f.gateGen, logger),
		f.web,
		NewAnswerSynthesizer(f.answerGen),
		NewAnswerVerifier(f.verifyGen, logger),
		f.store,
		f.archive,
		f.history,
		domain.ChatLimits{},
		logger,
	)
	return f
}

func TestChatSufficientEvidencePath(t *testing.T) {
	f := newChatFixture()

	result, err := f.uc.Respond(context.Background(), domain.ChatRequest{Message: "안산에서 받을 수 있는 월세 지원 알려줘"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Evidence != domain.EvidenceInternal {
		t.Fatalf("expected internal evidence, got %s", result.Evidence)
	}
	if result.Answer != "### [안산 청년 월세 지원]\n* 👤 대상: 만 19~39세" {
		t.Fatalf("expected the verified answer, got %q", result.Answer)
	}
	if result.SessionID == "" {
		t.Fatalf("missing session id must be generated")
	}
	if len(result.Regions) != 1 || result.Regions[0] != "안산" {
		t.Fatalf("expected normalized region 안산, got %v", result.Regions)
	}
	if result.EvidenceCount != 2 {
		t.Fatalf("expected both merged candidates counted, got %d", result.EvidenceCount)
	}
	if !result.Revised {
		t.Fatalf("a verifier rewrite must be flagged")
	}
	if f.web.calls != 0 {
		t.Fatalf("sufficient evidence must not trigger web search")
	}
	if len(f.archive.appended) != 2 {
		t.Fatalf("expected user and assistant turns archived, got %d", len(f.archive.appended))
	}
	if !strings.Contains(f.answerGen.lastSystem, "안산") {
		t.Fatalf("synthesis role must carry the context label, got %q", f.answerGen.lastSystem)
	}
}

func TestChatDeclinesWhenNoEvidenceAnywhere(t *testing.T) {
	f := newChatFixture()
	for i := range f.index.candidates {
		f.index.candidates[i].Score = 0.4
	}
	f.web.results = nil

	result, err := f.uc.Respond(context.Background(), domain.ChatRequest{Message: "안산 월세 지원"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Answer != DeclineMessage {
		t.Fatalf("expected the fixed decline message, got %q", result.Answer)
	}
	if result.Evidence != domain.EvidenceNone {
		t.Fatalf("expected no-evidence result, got %s", result.Evidence)
	}
	if f.answerGen.lastUser != "" {
		t.Fatalf("decline path must not call the synthesis model")
	}
	if f.verifyGen.lastUser != "" {
		t.Fatalf("decline path must not call the verifier")
	}
}

func TestChatFallsBackToWebSearch(t *testing.T) {
	f := newChatFixture()
	for i := range f.index.candidates {
		f.index.candidates[i].Score = 0.5
	}
	f.web.results = []domain.WebResult{{Title: "안산 청년정책 안내", Link: "https://youthcenter.go.kr/p1", Snippet: "월세 지원"}}

	result, err := f.uc.Respond(context.Background(), domain.ChatRequest{Message: "안산 월세 지원"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Evidence != domain.EvidenceExternal {
		t.Fatalf("expected external evidence, got %s", result.Evidence)
	}
	if !strings.HasPrefix(f.web.lastQuery, "site:youthcenter.go.kr") {
		t.Fatalf("web query must be constrained to the trusted domain, got %q", f.web.lastQuery)
	}
	if !strings.Contains(f.web.lastQuery, "안산") {
		t.Fatalf("web query must carry the extracted regions, got %q", f.web.lastQuery)
	}
}

func TestChatVerifierFailurePassesAnswerThrough(t *testing.T) {
	f := newChatFixture()
	f.verifyGen.err = errors.New("model down")

	result, err := f.uc.Respond(context.Background(), domain.ChatRequest{Message: "안산 월세 지원"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Answer != f.answerGen.text {
		t.Fatalf("verifier failure must return the synthesized answer, got %q", result.Answer)
	}
}

func TestChatOutOfDomainShortCircuits(t *testing.T) {
	f := newChatFixture()
	f.extractGen.jsonText = `{"is_in_domain": false, "regions": [], "reason": "날씨 질문"}`

	result, err := f.uc.Respond(context.Background(), domain.ChatRequest{Message: "오늘 날씨 어때?"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Answer != OutOfDomainMessage {
		t.Fatalf("expected the out-of-domain message, got %q", result.Answer)
	}
	if f.index.lastTopN != 0 {
		t.Fatalf("out-of-domain queries must not reach the index")
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newChatFixture()

	_, err := f.uc.Respond(context.Background(), domain.ChatRequest{Message: "   "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestChatKeepsCallerSessionID(t *testing.T) {
	f := newChatFixture()

	result, err := f.uc.Respond(context.Background(), domain.ChatRequest{SessionID: "s-42", Message: "안산 월세 지원"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.SessionID != "s-42" {
		t.Fatalf("caller session id must be preserved, got %q", result.SessionID)
	}
}

func TestChatRejectsEmbeddingDimMismatch(t *testing.T) {
	f := newChatFixture()
	f.uc.limits.EmbeddingDim = 8

	_, err := f.uc.Respond(context.Background(), domain.ChatRequest{Message: "안산 월세 지원"})
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider on dim mismatch, got %v", err)
	}
}

func TestChatHistoryFlowsIntoSynthesis(t *testing.T) {
	f := newChatFixture()
	f.history.cached = map[string][]domain.ChatMessage{
		"s-42": {{Role: "user", Content: "나 26살이야"}},
	}

	if _, err := f.uc.Respond(context.Background(), domain.ChatRequest{SessionID: "s-42", Message: "안산 월세 지원"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(f.answerGen.lastUser, "나 26살이야") {
		t.Fatalf("cached history must appear in the synthesis prompt")
	}
}
