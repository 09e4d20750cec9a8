// Package telemetry wires OpenTelemetry tracing and metrics for memvec.
//
// Spans and metrics are exported over OTLP (gRPC by default, or
// http/protobuf) to a collector. Telemetry is disabled by default.
//
//	tel, err := telemetry.New(ctx, &cfg.Telemetry, logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// The vector store and HTTP server take their tracers from the global
// provider, which New replaces when telemetry is enabled.
//
// Provider failures do not stop the process. The instance reports
// Degraded from Health and callers keep using no-op providers.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	tt.Install(t)
//	store.SimilaritySearch(ctx, req)
//	tt.AssertSpanExists(t, "MemoryStore.SimilaritySearch")
package telemetry
