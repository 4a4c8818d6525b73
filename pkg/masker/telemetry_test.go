package masker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publishRecorder captures published telemetry events.
type publishRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	feature    string
	properties map[string]string
}

func (p *publishRecorder) publish(feature string, properties map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{feature: feature, properties: properties})
}

func (p *publishRecorder) byFeature(feature string) []publishedEvent {
	var out []publishedEvent
	for _, e := range p.events {
		if e.feature == feature {
			out = append(out, e)
		}
	}
	return out
}

// correlatingToken builds a unique high-entropy token matching the
// github-token rule.
func correlatingToken(i int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("token-%d", i)))
	return "ghp_" + hex.EncodeToString(sum[:])[:36]
}

func TestAggregator_NoOpWhenNotStarted(t *testing.T) {
	var agg Aggregator
	rec := &publishRecorder{}

	agg.RecordInput("ignored")
	agg.RecordDetection(Detection{Moniker: "github-token", C3ID: "abc"})
	agg.StopAndPublish(rec.publish, 10)

	assert.Empty(t, rec.events)
}

func TestAggregator_AggregateCorrectness(t *testing.T) {
	m, _ := newModern(t)
	m.AddValue("supersecret123")

	var agg Aggregator
	require.True(t, AttachTelemetry(m, &agg))
	agg.Start(10)

	inputs := []string{
		"x supersecret123 y",
		"x supersecret123 y", // duplicate scan counts again
		"clean line",
	}
	totalChars := 0
	for _, in := range inputs {
		m.MaskSecrets(in)
		totalChars += len(in)
	}

	rec := &publishRecorder{}
	agg.StopAndPublish(rec.publish, 10)

	overall := rec.byFeature(FeatureDetections)
	require.Len(t, overall, 1)
	props := overall[0].properties
	assert.Equal(t, EngineVersion, props["engine_version"])
	assert.Equal(t, strconv.Itoa(totalChars), props["chars_scanned"])
	assert.Equal(t, "3", props["strings_scanned"])
	assert.Equal(t, "2", props["total_detections"])
	assert.Equal(t, "false", props["correlation_data_incomplete"])
	assert.Equal(t, "0", props["unique_correlating_ids"])
	assert.Empty(t, rec.byFeature(FeatureCorrelations))
}

func TestAggregator_CorrelationBatching(t *testing.T) {
	m, _ := newModern(t)
	var agg Aggregator
	require.True(t, AttachTelemetry(m, &agg))
	agg.Start(10)

	for i := 0; i < 3; i++ {
		m.MaskSecrets("deploy with " + correlatingToken(i))
	}

	rec := &publishRecorder{}
	agg.StopAndPublish(rec.publish, 2)

	correlations := rec.byFeature(FeatureCorrelations)
	require.Len(t, correlations, 2) // 2 + 1 pairs
	total := 0
	for _, e := range correlations {
		assert.LessOrEqual(t, len(e.properties), 2)
		total += len(e.properties)
		for _, moniker := range e.properties {
			assert.Equal(t, "github-token", moniker)
		}
	}
	assert.Equal(t, 3, total)

	overall := rec.byFeature(FeatureDetections)
	require.Len(t, overall, 1)
	assert.Equal(t, "3", overall[0].properties["unique_correlating_ids"])
}

func TestAggregator_CorrelationCap(t *testing.T) {
	m, _ := newModern(t)
	var agg Aggregator
	require.True(t, AttachTelemetry(m, &agg))
	agg.Start(3)

	for i := 0; i < 5; i++ {
		m.MaskSecrets(correlatingToken(i))
	}

	rec := &publishRecorder{}
	agg.StopAndPublish(rec.publish, 10)

	overall := rec.byFeature(FeatureDetections)
	require.Len(t, overall, 1)
	props := overall[0].properties
	assert.Equal(t, "true", props["correlation_data_incomplete"])

	unique, err := strconv.Atoi(props["unique_correlating_ids"])
	require.NoError(t, err)
	assert.LessOrEqual(t, unique, 3)

	// Repeated occurrences of a capped-out secret still count as
	// detections.
	assert.Equal(t, "5", props["total_detections"])
}

func TestAggregator_ElapsedIsScanTime(t *testing.T) {
	t.Run("accumulates recorded scan durations", func(t *testing.T) {
		var agg Aggregator
		agg.Start(10)
		agg.RecordElapsed(50 * time.Millisecond)
		agg.RecordElapsed(25 * time.Millisecond)

		rec := &publishRecorder{}
		agg.StopAndPublish(rec.publish, 10)

		overall := rec.byFeature(FeatureDetections)
		require.Len(t, overall, 1)
		assert.Equal(t, "75", overall[0].properties["elapsed_ms"])
	})

	t.Run("idle window reports zero regardless of its age", func(t *testing.T) {
		var agg Aggregator
		agg.Start(10)
		time.Sleep(10 * time.Millisecond)

		rec := &publishRecorder{}
		agg.StopAndPublish(rec.publish, 10)

		overall := rec.byFeature(FeatureDetections)
		require.Len(t, overall, 1)
		assert.Equal(t, "0", overall[0].properties["elapsed_ms"])
	})

	t.Run("scans feed the counter through the engine", func(t *testing.T) {
		m, _ := newModern(t)
		var agg Aggregator
		require.True(t, AttachTelemetry(m, &agg))
		agg.Start(10)

		m.MaskSecrets("some text to scan")

		st := agg.state.Load()
		require.NotNil(t, st)
		assert.Greater(t, st.elapsed.Load(), int64(0))
	})
}

func TestAggregator_StartIdempotentAndRestartable(t *testing.T) {
	var agg Aggregator
	agg.Start(10)
	agg.RecordInput("abcd")
	agg.Start(10) // no-op while running
	agg.RecordInput("efgh")

	rec := &publishRecorder{}
	agg.StopAndPublish(rec.publish, 10)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "8", rec.events[0].properties["chars_scanned"])

	// Second stop without a new start publishes nothing.
	agg.StopAndPublish(rec.publish, 10)
	assert.Len(t, rec.events, 1)

	// A fresh start begins a clean accounting window.
	agg.Start(10)
	agg.RecordInput("xy")
	agg.StopAndPublish(rec.publish, 10)
	require.Len(t, rec.events, 2)
	assert.Equal(t, "2", rec.events[1].properties["chars_scanned"])
}

func TestAttachTelemetry(t *testing.T) {
	t.Run("legacy engine has no accounting", func(t *testing.T) {
		m := newEngine(t, EngineLegacy)
		var agg Aggregator
		assert.False(t, AttachTelemetry(m, &agg))
	})

	t.Run("concurrent recording is safe", func(t *testing.T) {
		var agg Aggregator
		agg.Start(100)

		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					agg.RecordInput("abcdefghij")
					agg.RecordDetection(Detection{
						Moniker: "github-token",
						C3ID:    fmt.Sprintf("id-%d-%d", id, i%5),
					})
				}
			}(w)
		}
		wg.Wait()

		rec := &publishRecorder{}
		agg.StopAndPublish(rec.publish, 1000)

		overall := rec.byFeature(FeatureDetections)
		require.Len(t, overall, 1)
		assert.Equal(t, "800", overall[0].properties["strings_scanned"])
		assert.Equal(t, "8000", overall[0].properties["chars_scanned"])
		assert.Equal(t, "800", overall[0].properties["total_detections"])
		assert.Equal(t, "40", overall[0].properties["unique_correlating_ids"])
	})
}
