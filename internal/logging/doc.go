// Package logging provides structured logging for maskd.
//
// It wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry)
//   - Automatic context field injection (trace_id, job, step, request)
//   - Engine-backed scrubbing: every message and string field passes
//     through the secret masking engine before encoding
//
// The logging layer only formats; detection and redaction live in
// pkg/masker. Nothing in this package may inspect or retain pre-redaction
// text beyond the encoding call.
//
// Use TestLogger for assertions in tests:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "job started", zap.String("job.id", "job_1"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "job started")
package logging
