// Package corvusgo is the Go client driver core for CorvusDB.
//
// It manages the driver's view of a single database node: pooled
// synchronous and asynchronous connections, a periodic heartbeat that
// learns the node's role, and a cached server description that is
// invalidated the moment any operation on that node fails.
//
// # Quick Start
//
// Create a server for each node you talk to:
//
//	import (
//		"github.com/corvusdb/corvus-go/pkg/driver"
//		"github.com/corvusdb/corvus-go/pkg/transport"
//	)
//
//	factory, _ := transport.NewFactory(transport.Config{})
//	asyncFactory, _ := transport.NewAsyncFactory(transport.Config{})
//	scheduler := driver.NewTickerScheduler()
//
//	server, _ := driver.NewServer(
//		driver.NewAddress("db0.example.com:27717"),
//		factory, asyncFactory, scheduler,
//		driver.ServerConfig{},
//	)
//	defer server.Close()
//
//	conn, _ := server.GetConnection(ctx)
//	defer conn.Close()
//
// The server probes the node immediately and then on every heartbeat
// interval; GetDescription returns the last known state, or nil while the
// node is unreachable.
//
// # Package Structure
//
// The library is organized into several packages:
//
//   - pkg/driver: Server, connection pools, heartbeat monitor, and the
//     description cache
//   - pkg/transport: TCP connections speaking the Corvus wire protocol
//   - pkg/wire: Framed message format and command documents
//   - pkg/metrics: Pool and heartbeat metrics with Prometheus export
//   - pkg/version: Library version
//   - internal/auth: SCRAM-SHA-256 connection authentication
//   - internal/constants: Protocol parameters and driver defaults
//   - internal/errors: Sentinel errors and error wrappers
//   - internal/logging: slog-based structured logging
//
// # Testing
//
//	go test ./...                 # All tests
//	go test ./test/integration    # End-to-end tests against a fake node
//
// For more information, see: https://github.com/corvusdb/corvus-go
package corvusgo
