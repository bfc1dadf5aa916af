package domain

// EvidenceSource identifies which evidence set grounded an answer. Internal
// and external evidence are never mixed without this label.
type EvidenceSource string

const (
	EvidenceInternal EvidenceSource = "internal"
	EvidenceExternal EvidenceSource = "external"
	EvidenceNone     EvidenceSource = "none"
)

// DecisionKind is the tag of the EvidenceDecision variant.
type DecisionKind int

const (
	// DecisionSufficient: internal evidence passed the gate.
	DecisionSufficient DecisionKind = iota
	// DecisionFallback: gate failed, external search produced evidence.
	DecisionFallback
	// DecisionNoData: gate failed and the fallback came back empty; the
	// pipeline must return the fixed decline message without synthesis.
	DecisionNoData
)

// EvidenceDecision is the tagged variant dispatched exhaustively by the
// synthesizer. Exactly one of Internal/External is populated per kind.
type EvidenceDecision struct {
	Kind     DecisionKind
	Internal []RankedResult
	External []WebResult
	// ContextLabel is the matched-region label shown to the model, or the
	// nationwide label when no region matched.
	ContextLabel string
}

func SufficientEvidence(results []RankedResult, contextLabel string) EvidenceDecision {
	return EvidenceDecision{Kind: DecisionSufficient, Internal: results, ContextLabel: contextLabel}
}

func FallbackEvidence(results []WebResult, contextLabel string) EvidenceDecision {
	return EvidenceDecision{Kind: DecisionFallback, External: results, ContextLabel: contextLabel}
}

func NoEvidence() EvidenceDecision {
	return EvidenceDecision{Kind: DecisionNoData}
}

func (d EvidenceDecision) Source() EvidenceSource {
	switch d.Kind {
	case DecisionSufficient:
		return EvidenceInternal
	case DecisionFallback:
		return EvidenceExternal
	default:
		return EvidenceNone
	}
}
