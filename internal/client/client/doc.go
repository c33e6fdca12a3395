// Package client contains the client-side building blocks that talk to the
// outside world.
//
// # Overview
//
// The package provides:
//  1. GRPCClient, the gRPC implementation of both services.Authenticator
//     (Login/Logout/Ping) and remote.Source (Subscribe). It injects the
//     session access token via interceptors, transparently refreshes an
//     expired token and maps gRPC status codes to sentinel errors.
//  2. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database, the embedded goose migrations and the repositories
//     of the local store.
//
// # Error Handling
//
// Transport failures are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized.
//
// Concurrency & Contexts
//
// GRPCClient is safe for concurrent use; token state lives in the injected
// session. All operations accept context.Context and honor cancellation.
package client
