package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Exams(ctx context.Context) error
	Prefs(ctx context.Context, args []string) error
	SetStatus(ctx context.Context, args []string) error
	Lessons(ctx context.Context) error
	Pavilions(ctx context.Context) error
	Map(ctx context.Context, args []string) error
	Calendar(ctx context.Context, args []string) error
	SyncInfo(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, lessons, pavilions, map <code>, calendar lesson <id>, sync, exit"
	helpLoggedIn  = "Available commands: exams, prefs [todo|undecided|skip], status <exam> <todo|undecided|skip>, " +
		"lessons, pavilions, map <code>, calendar exam|lesson <id>, calendar todo, sync, whoami, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the Insubria Survive CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands that need a user report that a login is required; the check is
// done here so handlers can assume a session.
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("survive %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "exams", "e":
			err = requireLogin(a, func() error { return a.Exams(ctx) })

		case "prefs":
			err = requireLogin(a, func() error { return a.Prefs(ctx, args) })

		case "status":
			err = requireLogin(a, func() error { return a.SetStatus(ctx, args) })

		case "lessons", "l":
			err = a.Lessons(ctx)

		case "pavilions", "p":
			err = a.Pavilions(ctx)

		case "map":
			err = a.Map(ctx, args)

		case "calendar":
			err = a.Calendar(ctx, args)

		case "sync":
			err = a.SyncInfo(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func requireLogin(a execIface, fn func() error) error {
	if !a.isLoggedIn() {
		printlnFn("Please login first")
		return nil
	}
	return fn()
}
