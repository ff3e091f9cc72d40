package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/curricle-systems/core/pkg/ingestion"
	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/schemas"
	"github.com/curricle-systems/core/pkg/validate"
)

// Node names, in the fixed order spec §4.4 draws the graph in.
const (
	NodeNormalizeRequest     = "normalize_request"
	NodeResolveJurisdiction  = "resolve_jurisdiction"
	NodeVaultLookup          = "vault_lookup"
	NodeEnqueueColdStart     = "enqueue_cold_start"
	NodeScoutAgent           = "scout_agent"
	NodeGatekeeperAgent      = "gatekeeper_agent"
	NodeArchitectAgent       = "architect_agent"
	NodeEmbedder             = "embedder"
	NodeVaultStore           = "vault_store"
	NodeGenerate             = "generate"
	NodeHumanAlert           = "human_alert"
)

// Deps bundles every collaborator the fixed node sequence calls into.
type Deps struct {
	TenantID   string
	Model      *modelclient.Client
	Schemas    *validate.SchemaRegistry
	Scout      *ingestion.Scout
	Gatekeeper *ingestion.Gatekeeper
	Architect  *ingestion.Architect
	Embedder   *ingestion.Embedder
	Vault      Vault
	Harness    Harness
	JobRecorder JobRecorder
}

// JobRecorder is the seam the human_alert terminal state uses to enqueue a
// pending admin-review row (spec §6's admin.list_pending_jobs surface).
// Optional: a nil JobRecorder simply skips enqueuing.
type JobRecorder interface {
	RecordPendingJob(ctx context.Context, requestID, curriculumID, sourceURL, errorCode, reason string) error
}

// normalizeRequestNode classifies the raw prompt into a NormalizedRequest via
// a structured intent-classification call, gated by both the schema's own
// creation-time floor and C2's stricter stage floor (spec §4.1's
// intent_classification row).
func normalizeRequestNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		var resp normalizationResponse
		prompt := "Classify the following curriculum request into country, ISO-2 code, grade, subject, language, and mode (K12 or SYLLABUS), with a confidence score in [0,1].\n\nREQUEST:\n" + state.RawPrompt
		if err := deps.Model.GenerateStructured(ctx, deps.Schemas, normalizationSchemaName, deps.TenantID, prompt, modelclient.TaskStandard, 0.0, &resp); err != nil {
			return &RetryableError{Err: fmt.Errorf("normalize_request: %w", err), Code: "classification_failed", Retryable: true}
		}

		mode := schemas.CurriculumModeK12
		if strings.EqualFold(resp.Mode, string(schemas.CurriculumModeSyllabus)) {
			mode = schemas.CurriculumModeSyllabus
		}

		normalized, err := schemas.NewNormalizedRequest(schemas.NormalizedRequest{
			RequestID:   state.RequestID,
			RawPrompt:   state.RawPrompt,
			Country:     schemas.NormalizeText(resp.Country),
			CountryISO2: strings.ToUpper(strings.TrimSpace(resp.CountryISO2)),
			Grade:       schemas.NormalizeText(resp.Grade),
			Subject:     schemas.NormalizeText(resp.Subject),
			Language:    resp.Language,
			Institution: resp.Institution,
			Department:  resp.Department,
			Mode:        mode,
			Confidence:  resp.Confidence,
		})
		if err != nil {
			return &RetryableError{Err: err, Code: "low_normalization_confidence", Retryable: false}
		}
		if err := validate.CheckConfidenceThreshold(normalized.Confidence, validate.StageIntentClassification); err != nil {
			return &RetryableError{Err: err, Code: "low_normalization_confidence", Retryable: false}
		}

		state.NormalizedCountry = normalized.Country
		state.NormalizedCountryCode = normalized.CountryISO2
		state.NormalizedGrade = normalized.Grade
		state.NormalizedSubject = normalized.Subject
		state.NormalizationConfidence = normalized.Confidence
		return nil
	}
}

// resolveJurisdictionNode derives a JurisdictionResolution from the
// normalized request via a structured call, gated by both of
// JurisdictionResolution's invariants and C2's jurisdiction_resolution floor.
func resolveJurisdictionNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		var resp jurisdictionResponse
		prompt := fmt.Sprintf("Resolve the jurisdiction (national/state/county/university/department) for a %s grade %s request in %s. Report a Jurisdiction Ambiguity Score (jas), an assumption_type (assumed/user_confirmed/explicit), and a confidence score, all in [0,1].",
			state.NormalizedGrade, state.NormalizedSubject, state.NormalizedCountry)
		if err := deps.Model.GenerateStructured(ctx, deps.Schemas, jurisdictionSchemaName, deps.TenantID, prompt, modelclient.TaskStandard, 0.0, &resp); err != nil {
			return &RetryableError{Err: fmt.Errorf("resolve_jurisdiction: %w", err), Code: "jurisdiction_call_failed", Retryable: true}
		}

		resolution, err := schemas.NewJurisdictionResolution(schemas.JurisdictionResolution{
			RequestID:      state.RequestID,
			Level:          schemas.JurisdictionLevel(resp.Level),
			Name:           resp.Name,
			ParentID:       resp.ParentID,
			JAS:            resp.JAS,
			AssumptionType: schemas.AssumptionType(resp.AssumptionType),
			Confidence:     resp.Confidence,
		})
		if err != nil {
			return &RetryableError{Err: err, Code: "jurisdiction_invariant_violation", Retryable: false}
		}
		if err := validate.CheckConfidenceThreshold(resolution.Confidence, validate.StageJurisdictionResolution); err != nil {
			return &RetryableError{Err: err, Code: "low_jurisdiction_confidence", Retryable: false}
		}

		state.JurisdictionLevel = string(resolution.Level)
		state.JurisdictionName = resolution.Name
		state.JASScore = resolution.JAS
		state.JurisdictionConfidence = resolution.Confidence
		return nil
	}
}

// vaultLookupNode consults the curriculum store; a hit with sufficient
// confidence skips straight to Generate, otherwise the graph falls through
// to cold-start ingestion.
func vaultLookupNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		result, _, err := deps.Vault.Lookup(ctx, state.NormalizedCountry, state.NormalizedGrade, state.NormalizedSubject)
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("vault_lookup: %w", err), Code: "vault_unavailable", Retryable: true}
		}

		state.VaultFound = result.Found
		state.CurriculumID = result.CurriculumID
		state.VaultConfidence = result.Confidence
		state.NeedsColdStart = result.NeedsColdStart()
		return nil
	}
}

// enqueueColdStartNode mints the ingestion job id that Scout/Gatekeeper/
// Architect/Embedder all share for the remainder of the cold-start path.
func enqueueColdStartNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		state.ScoutJobID = uuid.NewString()
		if state.CurriculumID == "" {
			state.CurriculumID = uuid.NewString()
		}
		return nil
	}
}

func scoutAgentNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		out, err := deps.Scout.Search(state.ScoutJobID, state.NormalizedCountry, state.NormalizedCountryCode, state.NormalizedGrade, state.NormalizedSubject)
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("scout_agent: %w", err), Code: "scout_search_failed", Retryable: true}
		}
		if out.Status == schemas.AgentStatusFailed {
			state.RequiresHumanAlert = true
			return &RetryableError{Err: fmt.Errorf("scout_agent: no candidates found"), Code: "scout_no_candidates", Retryable: false}
		}

		urls := make([]string, 0, len(out.Candidates))
		for _, c := range out.Candidates {
			urls = append(urls, c.URL)
		}
		state.CandidateURLs = urls
		state.ScoutCandidates = out.Candidates
		return nil
	}
}

func gatekeeperAgentNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		out := deps.Gatekeeper.Validate(state.ScoutJobID, state.NormalizedCountry, state.ScoutCandidates)
		if out.Status == schemas.AgentStatusFailed || out.Status == schemas.AgentStatusConflicted {
			state.RequiresHumanAlert = true
			return &RetryableError{Err: fmt.Errorf("gatekeeper_agent: status %s", out.Status), Code: "gatekeeper_" + string(out.Status), Retryable: false}
		}

		// Official-first tie-break already applied by Scout's ranking; take
		// the first approved source as Architect's input.
		state.ApprovedSourceURL = out.Approved[0].URL
		return nil
	}
}

func architectAgentNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		out := deps.Architect.Parse(ctx, deps.TenantID, state.ScoutJobID, state.CurriculumID, state.ApprovedSourceURL)
		if out.Status == schemas.AgentStatusFailed {
			state.RequiresHumanAlert = true
			return &RetryableError{Err: fmt.Errorf("architect_agent: extraction failed"), Code: "architect_failed", Retryable: false}
		}
		if out.Status == schemas.AgentStatusLowConfidence {
			state.RequiresHumanAlert = true
		}

		state.CompetencyCount = len(out.Competencies)
		state.ExtractionConfidence = out.AverageConfidence
		state.Competencies = out.Competencies
		return nil
	}
}

func embedderNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		out, err := deps.Embedder.Embed(ctx, deps.TenantID, state.ScoutJobID, state.CurriculumID, state.Competencies)
		if err != nil || out.Status != schemas.AgentStatusSuccess {
			return &RetryableError{Err: fmt.Errorf("embedder: %w", err), Code: "embedding_failed", Retryable: true}
		}
		state.Chunks = out.Chunks
		return nil
	}
}

func vaultStoreNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		curriculum := schemas.Curriculum{
			ID:              state.CurriculumID,
			Country:         state.NormalizedCountry,
			CountryISO2:     state.NormalizedCountryCode,
			JurisdictionLvl: schemas.JurisdictionLevel(state.JurisdictionLevel),
			JurisdictionNm:  state.JurisdictionName,
			Grade:           state.NormalizedGrade,
			Subject:         state.NormalizedSubject,
			Status:          schemas.CurriculumStatusActive,
			Confidence:      state.ExtractionConfidence,
			SourceURL:       state.ApprovedSourceURL,
		}
		if err := deps.Vault.Store(ctx, curriculum, state.Competencies, state.Chunks); err != nil {
			return &RetryableError{Err: fmt.Errorf("vault_store: %w", err), Code: "vault_store_failed", Retryable: true}
		}
		state.VaultFound = true
		state.VaultConfidence = state.ExtractionConfidence
		return nil
	}
}

// generateNode delegates to the production harness, which runs primary+
// shadow generation, governance, and grounding verification. A rejected
// output (low coverage, missing citations) routes to human_alert.
func generateNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		competencies := state.Competencies
		if len(competencies) == 0 {
			fetched, err := deps.Vault.Competencies(ctx, state.CurriculumID)
			if err != nil {
				return &RetryableError{Err: fmt.Errorf("generate: %w", err), Code: "competency_fetch_failed", Retryable: true}
			}
			competencies = fetched
		}

		config := schemas.GenerationConfig{
			TopicTitle:   state.NormalizedSubject,
			Jurisdiction: state.JurisdictionLevel,
			Grade:        state.NormalizedGrade,
		}
		provenance := schemas.ProvenanceBlock{
			CurriculumID:         state.CurriculumID,
			ExtractionConfidence: state.ExtractionConfidence,
		}

		out, err := deps.Harness.Generate(ctx, deps.TenantID, state.CurriculumID, competencies, config, provenance)
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("generate: %w", err), Code: "generation_failed", Retryable: true}
		}
		if out.Status != schemas.GenerationApproved {
			state.RequiresHumanAlert = true
			return &RetryableError{Err: fmt.Errorf("generate: output rejected"), Code: "generation_rejected", Retryable: false}
		}

		state.GenerationOutputID = out.ID
		state.GeneratedContent = out.MarkdownContent
		state.GenerationCoverage = out.Coverage
		return nil
	}
}

// humanAlertNode is the terminal alert state: it marks the flag and, when a
// JobRecorder is wired, enqueues a pending review row so admin.list_pending_jobs
// (spec §6) can surface it. JobRecorder is optional — tests exercising node
// bodies without the full admin stack leave it nil.
func humanAlertNode(deps *Deps) NodeFunc {
	return func(ctx context.Context, state *schemas.GraphState) error {
		state.RequiresHumanAlert = true
		if deps.JobRecorder == nil {
			return nil
		}
		sourceURL := state.ApprovedSourceURL
		if sourceURL == "" && len(state.CandidateURLs) > 0 {
			sourceURL = state.CandidateURLs[0]
		}
		_ = deps.JobRecorder.RecordPendingJob(ctx, state.RequestID, state.CurriculumID, sourceURL, state.ErrorCode, state.ErrorMessage)
		return nil
	}
}
