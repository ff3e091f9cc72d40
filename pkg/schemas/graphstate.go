package schemas

import (
	"time"

	"github.com/google/uuid"
)

// NodeStatus is the lifecycle status of a single node execution.
type NodeStatus string

const (
	NodeStatusPending NodeStatus = "pending"
	NodeStatusRunning NodeStatus = "running"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusFailed  NodeStatus = "failed"
	NodeStatusSkipped NodeStatus = "skipped"
	NodeStatusHalted  NodeStatus = "halted"
)

// GraphExecutionMode distinguishes the normal served path from the shadow
// comparison path.
type GraphExecutionMode string

const (
	ExecutionModeNormal GraphExecutionMode = "normal"
	ExecutionModeShadow GraphExecutionMode = "shadow"
)

// FallbackTier escalates model selection away from the cost-optimized
// default as a request accumulates failures.
type FallbackTier string

const (
	FallbackTier0 FallbackTier = "tier_0" // cost-optimized
	FallbackTier1 FallbackTier = "tier_1" // accuracy escalation
	FallbackTier2 FallbackTier = "tier_2" // deterministic safe-mode
)

// MaxNodeAttempts is the strict per-node retry cap (spec §4.4): a node may
// execute at most twice in a request's history.
const MaxNodeAttempts = 2

// NodeExecution tracks one attempt at executing a single node.
type NodeExecution struct {
	NodeName     string         `json:"node_name"`
	Status       NodeStatus     `json:"status"`
	StartedAt    time.Time      `json:"started_at,omitempty"`
	CompletedAt  time.Time      `json:"completed_at,omitempty"`
	RetryCount   int            `json:"retry_count"`
	ErrorMessage string         `json:"error_message,omitempty"`
	OutputData   map[string]any `json:"output_data,omitempty"`
}

// CostTracking accumulates the cost of model calls made while serving a
// single request, enforced against the per-request and daily caps.
type CostTracking struct {
	TokensUsed       int     `json:"tokens_used"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	ModelCalls       int     `json:"model_calls"`
}

// PerRequestCapUSD and DailyCapUSD are the cost-guard limits from
// spec §4.4 / Blueprint Section 21.3 of the original Python source.
const (
	PerRequestCapUSD = 0.02
	DailyCapUSD      = 2.00
)

// IsWithinBudget reports whether the request's accumulated cost is still
// under the per-request cap.
func (c CostTracking) IsWithinBudget() bool {
	return c.EstimatedCostUSD < PerRequestCapUSD
}

// AddCost records a model call's token usage and dollar cost.
func (c *CostTracking) AddCost(tokens int, costUSD float64) {
	c.TokensUsed += tokens
	c.EstimatedCostUSD += costUSD
	c.ModelCalls++
}

// GraphState is the single shared state flowing through the orchestration
// graph, exclusively owned by the graph for the lifetime of one request and
// never shared across concurrent requests. Grounded field-for-field on
// src/orchestrator/state.py.
type GraphState struct {
	// Request identification.
	RequestID string `json:"request_id"`
	RawPrompt string `json:"raw_prompt"`

	// Execution context.
	ExecutionMode       GraphExecutionMode `json:"execution_mode"`
	CurrentFallbackTier FallbackTier       `json:"current_fallback_tier"`

	// Node tracking.
	NodeHistory []NodeExecution `json:"node_history"`
	CurrentNode string          `json:"current_node,omitempty"`

	// Normalized request data (NormalizeRequest node).
	NormalizedCountry       string  `json:"normalized_country,omitempty"`
	NormalizedCountryCode   string  `json:"normalized_country_code,omitempty"`
	NormalizedGrade         string  `json:"normalized_grade,omitempty"`
	NormalizedSubject       string  `json:"normalized_subject,omitempty"`
	NormalizationConfidence float64 `json:"normalization_confidence,omitempty"`

	// Jurisdiction data (ResolveJurisdiction node).
	JurisdictionLevel      string  `json:"jurisdiction_level,omitempty"`
	JurisdictionName        string  `json:"jurisdiction_name,omitempty"`
	JASScore                float64 `json:"jas_score,omitempty"`
	JurisdictionConfidence  float64 `json:"jurisdiction_confidence,omitempty"`

	// Vault data (VaultLookup node).
	VaultFound      bool    `json:"vault_found"`
	CurriculumID    string  `json:"curriculum_id,omitempty"`
	VaultConfidence float64 `json:"vault_confidence,omitempty"`
	NeedsColdStart  bool    `json:"needs_cold_start"`

	// Ingestion data (Scout/Gatekeeper/Architect/Embedder).
	ScoutJobID           string   `json:"scout_job_id,omitempty"`
	CandidateURLs        []string `json:"candidate_urls,omitempty"`
	ApprovedSourceURL    string   `json:"approved_source_url,omitempty"`
	CompetencyCount      int      `json:"competency_count"`
	ExtractionConfidence float64  `json:"extraction_confidence,omitempty"`

	// Transient ingestion payloads carried between nodes within one request;
	// excluded from serialization since the vault is the durable record.
	ScoutCandidates []SourceCandidate `json:"-"`
	Competencies    []Competency      `json:"-"`
	Chunks          []EmbeddedChunk   `json:"-"`

	// Generation data (Generate node).
	GenerationOutputID string  `json:"generation_output_id,omitempty"`
	GeneratedContent   string  `json:"generated_content,omitempty"`
	GenerationCoverage float64 `json:"generation_coverage,omitempty"`

	// Cost tracking.
	Cost CostTracking `json:"cost"`

	// Error handling.
	HasError           bool   `json:"has_error"`
	ErrorNode          string `json:"error_node,omitempty"`
	ErrorCode          string `json:"error_code,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
	ErrorRetryable     bool   `json:"retryable,omitempty"`
	RequiresHumanAlert bool   `json:"requires_human_alert"`
}

// NewGraphState creates a fresh GraphState for a new request, generating a
// request id the way the teacher's pkg/provenance and pkg/escalation
// packages mint ids: github.com/google/uuid.
func NewGraphState(rawPrompt string) *GraphState {
	return &GraphState{
		RequestID:           uuid.NewString(),
		RawPrompt:           rawPrompt,
		ExecutionMode:       ExecutionModeNormal,
		CurrentFallbackTier: FallbackTier0,
	}
}

func (s *GraphState) totalAttemptsForNode(nodeName string) int {
	count := 0
	for _, exec := range s.NodeHistory {
		if exec.NodeName == nodeName {
			count++
		}
	}
	return count
}

// RecordNodeStart appends a RUNNING execution record and clears the
// transient error state, mirroring record_node_start in state.py.
func (s *GraphState) RecordNodeStart(nodeName string) {
	s.CurrentNode = nodeName
	s.HasError = false
	s.NodeHistory = append(s.NodeHistory, NodeExecution{
		NodeName:  nodeName,
		Status:    NodeStatusRunning,
		StartedAt: time.Now().UTC(),
	})
}

// RecordNodeSuccess marks the most recent RUNNING record for nodeName as
// SUCCESS and stores its output.
func (s *GraphState) RecordNodeSuccess(nodeName string, output map[string]any) {
	for i := len(s.NodeHistory) - 1; i >= 0; i-- {
		exec := &s.NodeHistory[i]
		if exec.NodeName == nodeName && exec.Status == NodeStatusRunning {
			exec.Status = NodeStatusSuccess
			exec.CompletedAt = time.Now().UTC()
			exec.OutputData = output
			break
		}
	}
	s.CurrentNode = ""
}

// RecordNodeFailure marks the most recent RUNNING record for nodeName as
// FAILED and sets the request-level error fields.
func (s *GraphState) RecordNodeFailure(nodeName, errCode, errMessage string, retryable bool) {
	for i := len(s.NodeHistory) - 1; i >= 0; i-- {
		exec := &s.NodeHistory[i]
		if exec.NodeName == nodeName && exec.Status == NodeStatusRunning {
			exec.Status = NodeStatusFailed
			exec.CompletedAt = time.Now().UTC()
			exec.ErrorMessage = errMessage
			break
		}
	}
	s.HasError = true
	s.ErrorNode = nodeName
	s.ErrorCode = errCode
	s.ErrorMessage = errMessage
	s.ErrorRetryable = retryable
}

// CanRetryNode reports whether nodeName has been attempted fewer than
// MaxNodeAttempts times.
func (s *GraphState) CanRetryNode(nodeName string) bool {
	return s.totalAttemptsForNode(nodeName) < MaxNodeAttempts
}

// EscalateFallbackTier moves current_fallback_tier to the next tier,
// tier_2 being terminal.
func (s *GraphState) EscalateFallbackTier() {
	switch s.CurrentFallbackTier {
	case FallbackTier0:
		s.CurrentFallbackTier = FallbackTier1
	case FallbackTier1:
		s.CurrentFallbackTier = FallbackTier2
	}
}

// ShouldHalt implements should_halt from state.py: halt when the failing
// node has exhausted its retries, when tier_2 still has a fresh error, or
// when the per-request cost budget is exceeded.
func (s *GraphState) ShouldHalt() bool {
	if s.HasError && !s.CanRetryNode(s.ErrorNode) {
		return true
	}
	if s.CurrentFallbackTier == FallbackTier2 && s.HasError {
		return true
	}
	if !s.Cost.IsWithinBudget() {
		return true
	}
	return false
}
