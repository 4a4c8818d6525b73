// Package telemetry provides OpenTelemetry instrumentation for maskd.
//
// # Overview
//
// This package implements distributed tracing and metrics collection using
// the OpenTelemetry Go SDK, exporting to an OTEL Collector over OTLP. It
// also bridges the masking engine's aggregate scan telemetry onto OTel
// metrics via Publisher.
//
// # Usage
//
// Create telemetry instance:
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use tracer and meter:
//
//	tracer := tel.Tracer("maskd.server")
//	ctx, span := tracer.Start(ctx, "MaskRequest")
//	defer span.End()
//
// Publish engine scan aggregates:
//
//	pub, _ := telemetry.NewPublisher(tel)
//	agg := &masker.Aggregator{}
//	agg.Start(1000)
//	// ... scans happen ...
//	agg.StopAndPublish(pub.Publish, 100)
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  service_name: "maskd"
//	  sampling:
//	    rate: 1.0
//	    always_on_errors: true
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Error Handling
//
// Telemetry failures do not crash the application. If telemetry cannot be
// initialized, the instance degrades gracefully and returns no-op providers.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
