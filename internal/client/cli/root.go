package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	var parts []string
	if user, ok := a.auth.Current(); ok {
		parts = append(parts, user.Username)
	}
	if mode := a.Mode(); mode != "" {
		parts = append(parts, string(mode))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

// Root greets the user and runs the REPL on stdin until exit.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to Insubria Survive (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
