/*
Package tracing provides lightweight request tracing.

Each HTTP request and tool call gets a span carrying a trace id (a request
id from the shared id package) that propagates through context.Context and
the X-Trace-ID / X-Span-ID headers. Finished spans are logged at debug level
by a background collector; errored spans are logged at warn.

	tracer := tracing.New(logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "terminal.start_session")
	defer tracer.Finish(span)
*/
package tracing
