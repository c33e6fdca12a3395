// Package cli provides the interactive Insubria Survive command-line client.
//
// It wires configuration, the local store, the remote source, the
// synchronizers and the services, then runs an interactive REPL. The
// synchronizers keep the store current in the background while the user
// browses exams, lessons and pavilions, marks exams as DA_FARE, IN_FORSE or
// NON_FARE, exports events to a calendar and opens pavilion maps.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See NewApp, StartOnlineStatusWatcher, and runREPL for details.
package cli
