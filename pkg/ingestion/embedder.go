package ingestion

import (
	"context"
	"fmt"

	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/schemas"
)

// ChunkCharBudget approximates the 512-token main-chunk size (roughly 4
// chars/token), matching embedder.py's CHUNK_SIZE * 4 truncation.
const ChunkCharBudget = 512 * 4

// Embedder chunks competencies and embeds each chunk.
type Embedder struct {
	model *modelclient.Client
}

// NewEmbedder builds an Embedder backed by the given model client.
func NewEmbedder(model *modelclient.Client) *Embedder {
	return &Embedder{model: model}
}

// Embed chunks every competency (a main chunk, plus an outcomes chunk when
// the outcomes body exceeds MaxOutcomesCharsBeforeSplit) and embeds each
// chunk's text.
func (e *Embedder) Embed(ctx context.Context, tenantID, jobID, curriculumID string, competencies []schemas.Competency) (schemas.EmbedderOutput, error) {
	if len(competencies) == 0 {
		return schemas.EmbedderOutput{JobID: jobID, CurriculumID: curriculumID, Status: schemas.AgentStatusFailed}, nil
	}

	chunks := createChunks(competencies)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := e.model.Embed(ctx, texts)
	if err != nil {
		return schemas.EmbedderOutput{JobID: jobID, CurriculumID: curriculumID, Status: schemas.AgentStatusFailed}, err
	}

	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	if len(chunks) == 0 {
		return schemas.EmbedderOutput{JobID: jobID, CurriculumID: curriculumID, Status: schemas.AgentStatusFailed}, nil
	}

	return schemas.EmbedderOutput{
		JobID:          jobID,
		CurriculumID:   curriculumID,
		Chunks:         chunks,
		EmbeddedChunks: len(chunks),
		Status:         schemas.AgentStatusSuccess,
	}, nil
}

func createChunks(competencies []schemas.Competency) []schemas.EmbeddedChunk {
	var chunks []schemas.EmbeddedChunk

	for _, comp := range competencies {
		mainText := comp.Text()
		if len(mainText) > ChunkCharBudget {
			mainText = mainText[:ChunkCharBudget]
		}
		chunks = append(chunks, schemas.EmbeddedChunk{
			CompetencyID: comp.ID,
			ChunkKind:    "main",
			Text:         mainText,
		})

		outcomesText := joinOutcomes(comp.LearningOutcomes)
		if len(outcomesText) > schemas.MaxOutcomesCharsBeforeSplit {
			text := fmt.Sprintf("Learning Outcomes for %s:\n%s", comp.Title, outcomesText)
			if len(text) > ChunkCharBudget {
				text = text[:ChunkCharBudget]
			}
			chunks = append(chunks, schemas.EmbeddedChunk{
				CompetencyID: comp.ID,
				ChunkKind:    "outcomes",
				Text:         text,
			})
		}
	}

	return chunks
}

func joinOutcomes(outcomes []string) string {
	s := ""
	for i, o := range outcomes {
		if i > 0 {
			s += "\n"
		}
		s += "- " + o
	}
	return s
}
