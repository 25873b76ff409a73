// Package server assembles the chat relay's HTTP server.
//
// It routes the chat API under the configured prefix, the health and
// version probes, and the Prometheus endpoint, wraps them in the middleware
// chain, and manages the listener lifecycle including TLS and graceful
// shutdown.
//
// # Routes
//
//	POST {prefix}/chat    streamed chat turn
//	GET  {prefix}/ping    upstream probe
//	POST {prefix}/commit  commit the assistant reply
//	POST {prefix}/reset   clear the transcript
//	GET  /health          liveness
//	GET  /ready           readiness (store and upstream checks)
//	GET  /version         build information
//	GET  /metrics         Prometheus metrics (when enabled)
//
// Only the API routes carry the session cookie and rate limits.
//
// # Basic Usage
//
//	srv, err := server.NewServer(cfg, server.Dependencies{
//	    Chat:     handlers.NewChatHandler(service, cfg.Server.MaxBodyBytes),
//	    Sessions: sessions,
//	    Limiter:  limiter,
//	    Health:   checker,
//	    Metrics:  collector,
//	    Tracer:   tracer,
//	})
//	if err != nil {
//	    return err
//	}
//
//	// Blocks until ctx is cancelled, then drains in-flight streams
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// # Streaming
//
// Write timeouts default to zero because a chat reply streams for as long
// as the upstream produces deltas; the upstream timeout bounds each turn
// instead. Shutdown waits up to server.shutdown_timeout for open streams.
package server
