package cli

import (
	"context"
	"fmt"

	"github.com/studentreminder/reminder/internal/client/models"
	"github.com/studentreminder/reminder/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// fail reports an error that did not come from a store; store errors are
// shown through the status subscription.
func (a *App) fail(err error) error {
	fmt.Fprintln(a.out, "Error:", err)
	return err
}

// Signup prompts for username, email, role and password and registers a new
// identity, which becomes the session.
func (a *App) Signup(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return a.fail(err)
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.fail(err)
	}
	roleText, err := getSimpleText(a.reader, "Enter role (student, teacher, admin) [student]", a.out)
	if err != nil {
		return a.fail(err)
	}
	role := models.RoleStudent
	if roleText != "" {
		if role, err = models.ParseRole(roleText); err != nil {
			return a.fail(err)
		}
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return a.fail(err)
	}
	defer common.WipeByteArray(password)

	if err := a.identity.Signup(ctx, username, email, string(password), role); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", username)
	return nil
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.fail(err)
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return a.fail(err)
	}
	defer common.WipeByteArray(password)

	if err := a.identity.Login(ctx, email, string(password)); err != nil {
		return err
	}
	if err := a.events.GetEvents(ctx); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", a.identity.CurrentUser().Username)
	return nil
}

// Logout ends the session. Events stay on the device.
func (a *App) Logout(ctx context.Context) error {
	if err := a.identity.Logout(ctx); err != nil {
		return err
	}
	if err := a.events.GetEvents(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// ResetPassword asks for an email and requests a reset mail for it.
func (a *App) ResetPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.fail(err)
	}
	if err := a.identity.ResetPassword(ctx, email); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Password reset email sent to %s\n", email)
	return nil
}

// ChangePassword prompts for the current and the new password.
func (a *App) ChangePassword(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.fail(common.ErrNotAuthenticated)
	}

	current, err := getPassword(a.out, "Current password")
	if err != nil {
		return a.fail(err)
	}
	defer common.WipeByteArray(current)

	next, err := getPassword(a.out, "New password")
	if err != nil {
		return a.fail(err)
	}
	defer common.WipeByteArray(next)

	if err := a.identity.ChangePassword(ctx, string(current), string(next)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

// Profile renames the session identity.
func (a *App) Profile(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter new username", a.out)
	if err != nil {
		return a.fail(err)
	}
	if err := a.identity.UpdateProfile(ctx, username); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile updated")
	return nil
}

// WhoAmI prints the session identity.
func (a *App) WhoAmI(_ context.Context) error {
	u := a.identity.CurrentUser()
	if u == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> (%s), id %s\n", u.Username, u.Email, u.Role, u.ID)
	return nil
}
