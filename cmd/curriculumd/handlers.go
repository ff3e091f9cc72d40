package main

import (
	"encoding/json"
	"net/http"

	"github.com/curricle-systems/core/pkg/api"
	"github.com/curricle-systems/core/pkg/auth"
	"github.com/curricle-systems/core/pkg/harness"
	"github.com/curricle-systems/core/pkg/orchestrator"
	"github.com/curricle-systems/core/pkg/schemas"
)

type requestRequest struct {
	RawPrompt string `json:"raw_prompt"`
}

// requestHandler serves POST /api/requests, the top-level entry point for
// the orchestration graph (spec §1): a raw natural-language curriculum
// request runs the full normalize -> jurisdiction -> vault -> ingestion ->
// generate path and returns the terminal GraphState.
func requestHandler(graph *orchestrator.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.WriteMethodNotAllowed(w)
			return
		}
		var req requestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RawPrompt == "" {
			api.WriteBadRequest(w, "raw_prompt is required")
			return
		}

		state := schemas.NewGraphState(req.RawPrompt)
		result := graph.Run(r.Context(), state)

		w.Header().Set("Content-Type", "application/json")
		if result.HasError && !result.RequiresHumanAlert {
			w.WriteHeader(http.StatusUnprocessableEntity)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(result)
	}
}

type generateRequest struct {
	CurriculumID string                    `json:"curriculum_id"`
	Config       schemas.GenerationConfig  `json:"config"`
	Provenance   schemas.ProvenanceBlock   `json:"provenance"`
}

// generateHandler serves POST /api/generate, spec §6's
// generate(curriculum_id, config, provenance) -> Artifact RPC: it runs the
// read-only production harness directly against an already-ingested
// curriculum, bypassing the ingestion chain entirely.
func generateHandler(h *harness.ProductionHarness, vault orchestrator.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.WriteMethodNotAllowed(w)
			return
		}
		tenantID, err := auth.GetTenantID(r.Context())
		if err != nil {
			api.WriteUnauthorized(w, "tenant identity required")
			return
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CurriculumID == "" {
			api.WriteBadRequest(w, "curriculum_id and config are required")
			return
		}

		competencies, err := vault.Competencies(r.Context(), req.CurriculumID)
		if err != nil {
			api.WriteNotFound(w, "curriculum has no stored competencies")
			return
		}

		out, err := h.Generate(r.Context(), tenantID, req.CurriculumID, competencies, req.Config, req.Provenance)
		if err != nil {
			writeGenerateError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(out)
	}
}

func writeGenerateError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *schemas.DatabaseNotReadOnlyError:
		api.WriteInternal(w, err)
	case *schemas.CompetencyNotFoundError:
		api.WriteNotFound(w, err.Error())
	default:
		api.WriteBadRequest(w, err.Error())
	}
}
