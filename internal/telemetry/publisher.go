package telemetry

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

// Publisher bridges the masking engine's aggregate scan telemetry onto
// OTel metrics. The engine emits value-blind aggregate events through a
// masker.PublishFunc; Publisher translates those into counters and a
// scan-duration histogram tagged with a per-process instance ID.
type Publisher struct {
	instanceID string

	charsScanned    metric.Int64Counter
	stringsScanned  metric.Int64Counter
	totalDetections metric.Int64Counter
	correlationIDs  metric.Int64Counter
	scanElapsed     metric.Int64Histogram
	incompleteRuns  metric.Int64Counter
}

// NewPublisher creates a Publisher on tel's meter. Works against a no-op
// meter when telemetry is disabled, so callers never need to branch.
func NewPublisher(tel *Telemetry) (*Publisher, error) {
	meter := tel.Meter("maskd.masker")

	p := &Publisher{
		instanceID: uuid.NewString(),
	}

	var err error
	if p.charsScanned, err = meter.Int64Counter("maskd.scan.chars",
		metric.WithDescription("Total characters scanned for secrets"),
	); err != nil {
		return nil, fmt.Errorf("creating chars counter: %w", err)
	}
	if p.stringsScanned, err = meter.Int64Counter("maskd.scan.strings",
		metric.WithDescription("Total strings scanned for secrets"),
	); err != nil {
		return nil, fmt.Errorf("creating strings counter: %w", err)
	}
	if p.totalDetections, err = meter.Int64Counter("maskd.scan.detections",
		metric.WithDescription("Total secret detections across scans"),
	); err != nil {
		return nil, fmt.Errorf("creating detections counter: %w", err)
	}
	if p.correlationIDs, err = meter.Int64Counter("maskd.scan.correlating_ids",
		metric.WithDescription("Unique correlating identifiers reported per publish window"),
	); err != nil {
		return nil, fmt.Errorf("creating correlation counter: %w", err)
	}
	if p.scanElapsed, err = meter.Int64Histogram("maskd.scan.window_ms",
		metric.WithDescription("Accounting window duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("creating elapsed histogram: %w", err)
	}
	if p.incompleteRuns, err = meter.Int64Counter("maskd.scan.incomplete_windows",
		metric.WithDescription("Publish windows where the correlating ID cap was exceeded"),
	); err != nil {
		return nil, fmt.Errorf("creating incomplete counter: %w", err)
	}

	return p, nil
}

// InstanceID returns the per-process engine instance identifier attached
// to every published metric.
func (p *Publisher) InstanceID() string {
	return p.instanceID
}

// Publish satisfies masker.PublishFunc. It receives only aggregate,
// value-blind properties from the engine.
func (p *Publisher) Publish(feature string, properties map[string]string) {
	ctx := context.Background()

	switch feature {
	case masker.FeatureCorrelations:
		// Each property is one (C3ID, moniker) pair. Counting by moniker
		// keeps cardinality bounded to the rule set.
		byMoniker := make(map[string]int64, 8)
		for _, moniker := range properties {
			byMoniker[moniker]++
		}
		for moniker, n := range byMoniker {
			p.correlationIDs.Add(ctx, n, metric.WithAttributes(
				attribute.String("engine.instance", p.instanceID),
				attribute.String("rule.moniker", moniker),
			))
		}

	case masker.FeatureDetections:
		attrs := metric.WithAttributes(
			attribute.String("engine.instance", p.instanceID),
			attribute.String("engine.version", properties["engine_version"]),
		)
		p.charsScanned.Add(ctx, parseCount(properties["chars_scanned"]), attrs)
		p.stringsScanned.Add(ctx, parseCount(properties["strings_scanned"]), attrs)
		p.totalDetections.Add(ctx, parseCount(properties["total_detections"]), attrs)
		p.scanElapsed.Record(ctx, parseCount(properties["elapsed_ms"]), attrs)
		if properties["correlation_data_incomplete"] == "true" {
			p.incompleteRuns.Add(ctx, 1, attrs)
		}
	}
}

// parseCount parses an engine-formatted count, treating malformed or
// missing values as zero rather than failing the publish path.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
