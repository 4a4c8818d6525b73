package masker

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// EngineVersion identifies the engine in published telemetry events.
const EngineVersion = "maskd-modern/1.0"

// Telemetry event feature names.
const (
	// FeatureDetections is the overall aggregate event.
	FeatureDetections = "secret_detections"

	// FeatureCorrelations carries batched (C3ID, moniker) pairs.
	FeatureCorrelations = "secret_detection_correlations"
)

// PublishFunc receives telemetry events synchronously during
// StopAndPublish. Properties carry only aggregate, non-sensitive data.
type PublishFunc func(feature string, properties map[string]string)

// AttachTelemetry attaches agg to engines that support scan accounting
// (the modern engine). Reports whether the engine accepted it. Pass a nil
// aggregator to detach.
func AttachTelemetry(m Masker, agg *Aggregator) bool {
	type settable interface{ SetTelemetry(*Aggregator) }
	if s, ok := m.(settable); ok {
		s.SetTelemetry(agg)
		return true
	}
	return false
}

// Aggregator accumulates scanning statistics and a bounded set of
// correlating identifiers for later emission as aggregate telemetry.
//
// RecordInput, RecordDetection, and RecordElapsed run while scans hold the
// engine's read lock, so they use only atomic operations and a concurrent
// map: recording never requires exclusive access.
type Aggregator struct {
	state atomic.Pointer[aggregatorState]
}

type aggregatorState struct {
	maxIDs int

	chars      atomic.Int64
	strings    atomic.Int64
	detections atomic.Int64
	elapsed    atomic.Int64 // nanoseconds spent scanning

	ids      sync.Map // C3ID -> moniker
	idCount  atomic.Int64
	overflow atomic.Bool
}

// Start begins accounting with the given cap on unique correlating
// identifiers. Idempotent: repeated starts while running are no-ops.
func (a *Aggregator) Start(maxUniqueCorrelatingIDs int) {
	st := &aggregatorState{
		maxIDs: maxUniqueCorrelatingIDs,
	}
	a.state.CompareAndSwap(nil, st)
}

// Running reports whether accounting is active.
func (a *Aggregator) Running() bool {
	return a.state.Load() != nil
}

// RecordInput accounts one scanned string. Called once per MaskSecrets
// invocation.
func (a *Aggregator) RecordInput(text string) {
	st := a.state.Load()
	if st == nil {
		return
	}
	st.chars.Add(int64(len(text)))
	st.strings.Add(1)
}

// RecordElapsed accounts time spent inside one scan. Like the other
// recording paths it runs under the engine's read lock.
func (a *Aggregator) RecordElapsed(d time.Duration) {
	st := a.state.Load()
	if st == nil {
		return
	}
	st.elapsed.Add(int64(d))
}

// RecordDetection accounts one detection. Correlating identifiers are
// added best-effort while under the cap: exceeding it slightly under
// races is tolerated, since hard enforcement would block scans.
func (a *Aggregator) RecordDetection(d Detection) {
	st := a.state.Load()
	if st == nil {
		return
	}
	st.detections.Add(1)

	if d.C3ID == "" {
		return
	}
	if _, seen := st.ids.Load(d.C3ID); seen {
		return
	}
	if st.idCount.Load() >= int64(st.maxIDs) {
		st.overflow.Store(true)
		return
	}
	if _, loaded := st.ids.LoadOrStore(d.C3ID, d.Moniker); !loaded {
		st.idCount.Add(1)
	}
}

// StopAndPublish atomically detaches the accounting state, then emits zero
// or more correlation events (up to maxIDsPerEvent pairs each) followed by
// exactly one overall event. A complete no-op when accounting was never
// started: publish is invoked zero times.
func (a *Aggregator) StopAndPublish(publish PublishFunc, maxIDsPerEvent int) {
	st := a.state.Swap(nil)
	if st == nil || publish == nil {
		return
	}
	if maxIDsPerEvent < 1 {
		maxIDsPerEvent = 1
	}

	uniqueIDs := 0
	batch := make(map[string]string, maxIDsPerEvent)
	st.ids.Range(func(key, value any) bool {
		batch[key.(string)] = value.(string)
		uniqueIDs++
		if len(batch) >= maxIDsPerEvent {
			publish(FeatureCorrelations, batch)
			batch = make(map[string]string, maxIDsPerEvent)
		}
		return true
	})
	if len(batch) > 0 {
		publish(FeatureCorrelations, batch)
	}

	publish(FeatureDetections, map[string]string{
		"engine_version":              EngineVersion,
		"chars_scanned":               strconv.FormatInt(st.chars.Load(), 10),
		"strings_scanned":             strconv.FormatInt(st.strings.Load(), 10),
		"total_detections":            strconv.FormatInt(st.detections.Load(), 10),
		"elapsed_ms":                  strconv.FormatInt(time.Duration(st.elapsed.Load()).Milliseconds(), 10),
		"correlation_data_incomplete": strconv.FormatBool(st.overflow.Load()),
		"unique_correlating_ids":      strconv.Itoa(uniqueIDs),
	})
}
