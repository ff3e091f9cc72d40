package schemas

import "time"

// ArtifactSummary records the coarse, PII-free shape of a generated
// artifact for shadow-log persistence — only counts, never content.
type ArtifactSummary struct {
	TopicCount    int `json:"topic_count"`
	SentenceCount int `json:"sentence_count"`
	CharCount     int `json:"char_count"`
}

// ShadowMetrics are the five divergence measurements between a primary and
// shadow generation, defined in spec §4.7.
type ShadowMetrics struct {
	TopicSetDelta   float64 `json:"topic_set_delta"`
	OrderingDelta   float64 `json:"ordering_delta"`
	ContentDelta    float64 `json:"content_delta"`
	ExtraTopicRate  float64 `json:"extra_topic_rate"`
	OmissionRate    float64 `json:"omission_rate"`
}

// ShadowEnvironment records the model identities and seed used for a shadow
// comparison, so a divergence can be attributed after the fact.
type ShadowEnvironment struct {
	PrimaryModelID    string `json:"primary_model_id"`
	PrimaryModelVer   string `json:"primary_model_version,omitempty"`
	ShadowModelID     string `json:"shadow_model_id"`
	ShadowModelVer    string `json:"shadow_model_version,omitempty"`
	EmbeddingModel    string `json:"embedding_model"`
	Seed              int64  `json:"seed"`
}

// ShadowLog is a typed record of one shadow-execution comparison. The shadow
// executor persists its own shadow.LogEntry, not this type.
type ShadowLog struct {
	JobID        string            `json:"job_id"`
	RequestID    string            `json:"request_id"`
	CurriculumID string            `json:"curriculum_id"`
	Timestamp    time.Time         `json:"timestamp"` // ISO-8601 UTC
	Primary      ArtifactSummary   `json:"primary"`
	Shadow       ArtifactSummary   `json:"shadow"`
	Metrics      ShadowMetrics     `json:"metrics"`
	Alerts       []string          `json:"alerts"`
	Environment  ShadowEnvironment `json:"environment"`
	StoragePath  string            `json:"storage_path"`
}

// StoragePathFor computes the date-partitioned path spec §4.7 mandates:
// <storage>/shadow_logs/YYYY/MM/DD/<job_id>.json.
func StoragePathFor(storageRoot, jobID string, ts time.Time) string {
	ts = ts.UTC()
	return storageRoot + "/shadow_logs/" +
		ts.Format("2006") + "/" + ts.Format("01") + "/" + ts.Format("02") + "/" + jobID + ".json"
}
