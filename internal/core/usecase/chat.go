package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

// OutOfDomainMessage is returned without retrieval when the intent
// classifier rules the query out of scope.
const OutOfDomainMessage = "저는 청년 정책과 취업·복지 지원에 대해 안내하는 챗봇이에요. 정책 관련 질문을 해주시면 도와드릴게요!"

// ChatUseCase runs the retrieval-and-answer pipeline for one user turn:
// intent extraction, embedding, vector search, priority ranking, the
// sufficiency gate, optional web-search fallback, synthesis, and the
// self-verification pass.
type ChatUseCase struct {
	extractor   *RegionIntentExtractor
	embedder    ports.Embedder
	index       ports.VectorIndex
	gate        *SufficiencyGate
	web         ports.WebSearcher
	synthesizer *AnswerSynthesizer
	verifier    *AnswerVerifier
	policies    ports.PolicyStore
	archive     ports.ChatArchive
	history     ports.HistoryCache
	limits      domain.ChatLimits
	logger      *slog.Logger
}

func NewChatUseCase(
	extractor *RegionIntentExtractor,
	embedder ports.Embedder,
	index ports.VectorIndex,
	gate *SufficiencyGate,
	web ports.WebSearcher,
	synthesizer *AnswerSynthesizer,
	verifier *AnswerVerifier,
	policies ports.PolicyStore,
	archive ports.ChatArchive,
	history ports.HistoryCache,
	limits domain.ChatLimits,
	logger *slog.Logger,
) *ChatUseCase {
	if limits.ExtractTimeout <= 0 {
		limits.ExtractTimeout = 10 * time.Second
	}
	if limits.EmbedTimeout <= 0 {
		limits.EmbedTimeout = 15 * time.Second
	}
	if limits.SearchTimeout <= 0 {
		limits.SearchTimeout = 10 * time.Second
	}
	if limits.GenerateTimeout <= 0 {
		limits.GenerateTimeout = 60 * time.Second
	}
	if limits.VerifyTimeout <= 0 {
		limits.VerifyTimeout = 30 * time.Second
	}
	if limits.CandidateLimit <= 0 {
		limits.CandidateLimit = 50
	}
	if limits.HistoryWindow <= 0 {
		limits.HistoryWindow = 6
	}
	if limits.WebSearchLimit <= 0 {
		limits.WebSearchLimit = 5
	}
	if limits.TrustedDomain == "" {
		limits.TrustedDomain = "youthcenter.go.kr"
	}

	return &ChatUseCase{
		extractor:   extractor,
		embedder:    embedder,
		index:       index,
		gate:        gate,
		web:         web,
		synthesizer: synthesizer,
		verifier:    verifier,
		policies:    policies,
		archive:     archive,
		history:     history,
		limits:      limits,
		logger:      logger,
	}
}

func (uc *ChatUseCase) Respond(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	query := strings.TrimSpace(req.Message)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat respond", fmt.Errorf("message is required"))
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if _, err := uc.archive.EnsureSession(ctx, sessionID, req.UserID); err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}
	if err := uc.appendTurn(ctx, sessionID, "user", query); err != nil {
		return nil, err
	}

	// History load has no dependency on extraction; overlap them.
	historyCh := make(chan []domain.ChatMessage, 1)
	go func() {
		historyCh <- uc.recentHistory(ctx, sessionID)
	}()

	extractCtx, cancelExtract := context.WithTimeout(ctx, uc.limits.ExtractTimeout)
	intent := uc.extractor.Extract(extractCtx, query)
	cancelExtract()
	history := <-historyCh

	if !intent.InDomain {
		if err := uc.appendTurn(ctx, sessionID, "assistant", OutOfDomainMessage); err != nil {
			return nil, err
		}
		return &domain.ChatResult{
			SessionID: sessionID,
			Answer:    OutOfDomainMessage,
			Evidence:  domain.EvidenceNone,
		}, nil
	}

	decision, err := uc.decideEvidence(ctx, query, intent.Regions)
	if err != nil {
		return nil, err
	}

	genCtx, cancelGen := context.WithTimeout(ctx, uc.limits.GenerateTimeout)
	answer, err := uc.synthesizer.Synthesize(genCtx, query, history, decision)
	cancelGen()
	if err != nil {
		return nil, err
	}

	revised := false
	if decision.Kind != domain.DecisionNoData {
		verifyCtx, cancelVerify := context.WithTimeout(ctx, uc.limits.VerifyTimeout)
		verified := uc.verifier.Verify(verifyCtx, decision, answer)
		cancelVerify()
		revised = verified != answer
		answer = verified
	}

	if err := uc.appendTurn(ctx, sessionID, "assistant", answer); err != nil {
		return nil, err
	}

	return &domain.ChatResult{
		SessionID:     sessionID,
		Answer:        answer,
		Evidence:      decision.Source(),
		Regions:       intent.Regions,
		EvidenceCount: len(decision.Internal) + len(decision.External),
		Revised:       revised,
	}, nil
}

// decideEvidence retrieves internal candidates, applies the priority merge
// and the sufficiency gate, and falls back to web search when the gate
// signals insufficiency. A failed or empty fallback yields DecisionNoData.
func (uc *ChatUseCase) decideEvidence(ctx context.Context, query string, regions []string) (domain.EvidenceDecision, error) {
	embedCtx, cancelEmbed := context.WithTimeout(ctx, uc.limits.EmbedTimeout)
	vector, err := uc.embedder.Embed(embedCtx, query, ports.RoleQuery)
	cancelEmbed()
	if err != nil {
		return domain.EvidenceDecision{}, fmt.Errorf("embed query: %w", err)
	}
	if uc.limits.EmbeddingDim > 0 && len(vector) != uc.limits.EmbeddingDim {
		return domain.EvidenceDecision{}, domain.WrapError(domain.ErrProvider, "embed query",
			fmt.Errorf("embedding dim mismatch: got %d, expected %d", len(vector), uc.limits.EmbeddingDim))
	}

	searchCtx, cancelSearch := context.WithTimeout(ctx, uc.limits.SearchTimeout)
	candidates, err := uc.index.Search(searchCtx, vector, uc.limits.CandidateLimit, domain.SearchFilter{})
	cancelSearch()
	if err != nil {
		return domain.EvidenceDecision{}, fmt.Errorf("vector search: %w", err)
	}

	merged, contextLabel := MergeByRegionPriority(regions, candidates)

	gateCtx, cancelGate := context.WithTimeout(ctx, uc.limits.GenerateTimeout)
	sufficient := uc.gate.Evaluate(gateCtx, query, merged)
	cancelGate()

	if sufficient {
		return domain.SufficientEvidence(uc.enrich(ctx, query, merged), contextLabel), nil
	}

	results := uc.searchWeb(ctx, query, regions)
	if len(results) == 0 {
		return domain.NoEvidence(), nil
	}
	return domain.FallbackEvidence(results, contextLabel), nil
}

// enrich attaches display fields to the merged evidence. The metadata join
// is advisory: on store failure candidates are enriched from chunk content.
func (uc *ChatUseCase) enrich(ctx context.Context, query string, merged []domain.Candidate) []domain.RankedResult {
	ids := make([]string, 0, len(merged))
	for _, c := range merged {
		ids = append(ids, c.PolicyID)
	}
	policies, err := uc.policies.GetByPolicyIDs(ctx, ids)
	if err != nil {
		uc.logger.Warn("policy_metadata_lookup_failed", "error", err)
		policies = nil
	}

	terms := QueryTerms(query)
	out := make([]domain.RankedResult, 0, len(merged))
	for _, c := range merged {
		out = append(out, EnrichCandidate(c, policies[c.PolicyID], terms))
	}
	return out
}

// searchWeb issues the constrained external search. Provider failure is not
// escalated; the pipeline degrades to the decline path.
func (uc *ChatUseCase) searchWeb(ctx context.Context, query string, regions []string) []domain.WebResult {
	parts := []string{"site:" + uc.limits.TrustedDomain}
	parts = append(parts, regions...)
	parts = append(parts, query)

	searchCtx, cancel := context.WithTimeout(ctx, uc.limits.SearchTimeout)
	defer cancel()

	results, err := uc.web.Search(searchCtx, strings.Join(parts, " "), uc.limits.WebSearchLimit)
	if err != nil {
		uc.logger.Warn("web_search_failed", "error", err)
		return nil
	}
	return results
}

func (uc *ChatUseCase) recentHistory(ctx context.Context, sessionID string) []domain.ChatMessage {
	if cached, ok := uc.history.Recent(sessionID); ok {
		return cached
	}
	messages, err := uc.archive.RecentMessages(ctx, sessionID, uc.limits.HistoryWindow)
	if err != nil {
		uc.logger.Warn("history_load_failed", "error", err, "session_id", sessionID)
		return nil
	}
	return messages
}

func (uc *ChatUseCase) appendTurn(ctx context.Context, sessionID, role, content string) error {
	if err := uc.archive.AppendMessage(ctx, domain.StoredMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("append %s message: %w", role, err)
	}
	uc.history.Append(sessionID, role, content)
	return nil
}
