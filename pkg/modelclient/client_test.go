package modelclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curricle-systems/core/pkg/kernel"
	"github.com/curricle-systems/core/pkg/llm"
	"github.com/curricle-systems/core/pkg/metering"
	"github.com/curricle-systems/core/pkg/store"
	"github.com/curricle-systems/core/pkg/validate"
)

type fakeLLMClient struct {
	fail    int
	content string
	calls   int
}

func (f *fakeLLMClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, options *llm.SamplingOptions) (*llm.Response, error) {
	f.calls++
	if f.calls <= f.fail {
		return nil, errors.New("simulated provider failure")
	}
	return &llm.Response{Content: f.content}, nil
}

type noopMeter struct{ events []metering.Event }

func (m *noopMeter) Record(ctx context.Context, event metering.Event) error {
	m.events = append(m.events, event)
	return nil
}
func (m *noopMeter) RecordBatch(ctx context.Context, events []metering.Event) error { return nil }
func (m *noopMeter) GetUsage(ctx context.Context, tenantID string, period metering.Period) (*metering.Usage, error) {
	return nil, nil
}
func (m *noopMeter) GetUsageByType(ctx context.Context, tenantID string, eventType metering.EventType, period metering.Period) (int64, error) {
	return 0, nil
}

func newTestClient(primary, fallback llm.Client) (*Client, *noopMeter) {
	chain := NewChain(
		ProviderSpec{ModelID: "primary", Client: primary, Tier: TierFast},
		ProviderSpec{ModelID: "fallback", Client: fallback, Tier: TierSmart},
	)
	registry := NewRegistry(map[TaskKind]*Chain{TaskStandard: chain})
	limiter := NewLimiter(kernel.NewInMemoryLimiterStore(), map[ModelTier]TierLimits{
		TierFast:  {RPM: 6000, DailyCallCap: 0},
		TierSmart: {RPM: 6000, DailyCallCap: 0},
	})
	meter := &noopMeter{}
	return NewClient(registry, limiter, &store.MemoryEmbedder{}, meter), meter
}

func TestGenerateText_RetriesThenSucceeds(t *testing.T) {
	primary := &fakeLLMClient{fail: 2, content: "hello"}
	c, meter := newTestClient(primary, &fakeLLMClient{content: "fallback"})

	out, err := c.GenerateText(context.Background(), "tenant-1", "prompt", TaskStandard, 0.2)
	require.NoError(t, err)
	require.Equal(t, "hello", out)
	require.Equal(t, 3, primary.calls)
	require.Len(t, meter.events, 1)
}

func TestGenerateText_FallsBackToNextProvider(t *testing.T) {
	primary := &fakeLLMClient{fail: MaxRetryAttempts, content: "never"}
	fallback := &fakeLLMClient{content: "from fallback"}
	c, _ := newTestClient(primary, fallback)

	out, err := c.GenerateText(context.Background(), "tenant-1", "prompt", TaskStandard, 0.2)
	require.NoError(t, err)
	require.Equal(t, "from fallback", out)
}

func TestGenerateStructured_StripsCodeFenceOnRetry(t *testing.T) {
	primary := &fakeLLMClient{content: "```json\n{\"title\":\"Cells\",\"source_chunk_ids\":[\"c1\"]}\n```"}
	c, _ := newTestClient(primary, &fakeLLMClient{content: "{}"})

	reg := validate.NewSchemaRegistry()
	require.NoError(t, reg.Register("Competency", `{
		"type": "object",
		"required": ["title", "source_chunk_ids"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"source_chunk_ids": {"type": "array", "minItems": 1}
		}
	}`))

	var out struct {
		Title          string   `json:"title"`
		SourceChunkIDs []string `json:"source_chunk_ids"`
	}
	err := c.GenerateStructured(context.Background(), reg, "Competency", "tenant-1", "prompt", TaskStandard, 0.2, &out)
	require.NoError(t, err)
	require.Equal(t, "Cells", out.Title)
}

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{1, 0}), 0.0001)
	require.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 0.0001)
	require.Equal(t, -1.0, Cosine(nil, nil))
}

func TestLimiter_DailyCapExhausted(t *testing.T) {
	limiter := NewLimiter(kernel.NewInMemoryLimiterStore(), map[ModelTier]TierLimits{
		TierFast: {RPM: 6000, DailyCallCap: 1},
	})
	require.NoError(t, limiter.Acquire(context.Background(), TierFast))
	err := limiter.Acquire(context.Background(), TierFast)
	require.Error(t, err)
	var dce *DailyCapExhaustedError
	require.ErrorAs(t, err, &dce)
}
