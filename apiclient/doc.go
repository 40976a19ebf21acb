// Package apiclient provides a resilient HTTP request-execution core:
// a fluent request builder, a retrying execution engine with exponential
// backoff and jitter, a thread-safe OAuth2 client-credentials token cache,
// an interceptor pipeline, and an in-process metrics registry.
//
// # Quick Start
//
//	client := apiclient.New(
//	    apiclient.WithBaseURL("https://api.example.com"),
//	)
//	defer client.Close()
//
//	res, err := client.NewRequest().
//	    Path("/users/{id}").
//	    PathParam("id", "42").
//	    BearerAuth(token).
//	    Get(ctx)
//	if err != nil {
//	    return err
//	}
//	if err := res.AssertStatus(200); err != nil {
//	    return err
//	}
//
// # Resilience
//
// Every request is executed through a retry loop with exponential backoff
// and jitter. The retry decision is made by a caller-supplied predicate
// over the response (default: retry on 408, 429 and any 5xx). Transport
// failures are retried up to the configured count and surfaced as a single
// *ExecutionError carrying the last cause. Optional client-side rate
// limiting (golang.org/x/time/rate) and circuit breaking (sony/gobreaker)
// can be enabled per client.
//
// # Shared State
//
// A Client owns exactly one TokenCache, MetricsRegistry and
// InterceptorPipeline. They are safe for many concurrent callers and are
// injected into the execution engine rather than accessed through package
// globals, so independent clients never share state.
package apiclient
