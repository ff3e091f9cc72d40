package validate

import "github.com/curricle-systems/core/pkg/schemas"

// ConfidenceStage names a point in the pipeline a confidence floor applies
// to, matching the table in spec §4.1.
type ConfidenceStage string

const (
	StageIntentClassification ConfidenceStage = "intent_classification"
	StageJurisdictionResolution ConfidenceStage = "jurisdiction_resolution"
	StageSourceValidation     ConfidenceStage = "source_validation"
	StageOCRParsing           ConfidenceStage = "ocr_parsing"
	StageGenerationGrounding  ConfidenceStage = "generation_grounding"
)

// confidenceFloors holds the stage -> floor table from spec §4.1.
var confidenceFloors = map[ConfidenceStage]float64{
	StageIntentClassification:  0.85,
	StageJurisdictionResolution: 0.80,
	StageSourceValidation:      0.90,
	StageOCRParsing:            0.70,
	StageGenerationGrounding:   1.0,
}

// CheckConfidenceThreshold fails with a ConfidenceThresholdError when score
// is below the stage-specific floor.
func CheckConfidenceThreshold(score float64, stage ConfidenceStage) error {
	floor, ok := confidenceFloors[stage]
	if !ok {
		floor = 0
	}
	if score < floor {
		return &schemas.ConfidenceThresholdError{
			Stage:    string(stage),
			Actual:   score,
			Required: floor,
		}
	}
	return nil
}

// MinGroundingCoverage is the binary grounding-gate floor.
const MinGroundingCoverage = 0.8

// EnforceGroundingGate rejects coverage below the binary floor.
func EnforceGroundingGate(coverage float64) error {
	if coverage < MinGroundingCoverage {
		return &schemas.GroundingError{Coverage: coverage, Required: MinGroundingCoverage}
	}
	return nil
}

// DetermineFallbackTier implements determine_fallback_tier from spec §4.2:
// tier_0 when confidence and failure history are both healthy, tier_1 on
// confidence < 0.7 or a single failure, tier_2 on >= 2 failures.
func DetermineFallbackTier(confidence float64, failureCount int) schemas.FallbackTier {
	if failureCount >= 2 {
		return schemas.FallbackTier2
	}
	if confidence < 0.7 || failureCount == 1 {
		return schemas.FallbackTier1
	}
	return schemas.FallbackTier0
}
