package cli

import (
	"context"
	"fmt"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getConfirm = GetConfirm

// Login prompts for credentials and authenticates against the server.
//
// The outcome is reported through the login callback; a failed login is
// printed and leaves any previous session untouched. After a successful
// login the exam partitions are derived once so defaults exist for the new
// user.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var loggedIn bool
	err = a.auth.Login(ctx, username, string(password), func(u models.User, err error) {
		if err != nil {
			printlnFn("Login failed:", err)
			return
		}
		loggedIn = true
		printlnFn(fmt.Sprintf("Welcome, %s", displayName(u)))
	})
	if err != nil || !loggedIn {
		return nil
	}

	parts, err := a.prefs.Derive(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("%d exams: %d %s, %d %s, %d %s", parts.Len(),
		len(parts.ToDo), models.StatusToDo.Label(),
		len(parts.Undecided), models.StatusUndecided.Label(),
		len(parts.Skip), models.StatusSkip.Label()))
	return nil
}

// Logout clears the session. A failed revoke on the server is only logged.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, ok := a.auth.Current()
	if !ok {
		printlnFn("Not logged in")
		return nil
	}
	printlnFn(fmt.Sprintf("%s (%s)", displayName(u), u.Username))
	return nil
}

func displayName(u models.User) string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}
