// Package serve exposes a running devdefend engine over the network.
//
// A Server listens on two ports: an HTTP port carrying the JSON health report
// and the progress WebSocket endpoint, and a gRPC port carrying the standard
// grpc.health.v1 service. The gRPC serving status follows the engine's health
// report, refreshed on an interval.
//
// # Usage
//
//	srv, err := serve.NewServer(engine, engine.Registry(),
//	    serve.WithPort(cfg.GetGRPCPort()),
//	    serve.WithListenAddr(cfg.GetListenAddr()),
//	    serve.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Serve blocks until ctx is cancelled, SIGINT or SIGTERM is received, or a
// listener fails, and then shuts both servers down gracefully.
package serve
