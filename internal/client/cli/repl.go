package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Profile(ctx context.Context) error
	WhoAmI(ctx context.Context) error

	AddEvent(ctx context.Context) error
	EditEvent(ctx context.Context, args []string) error
	DeleteEvent(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error

	Export(ctx context.Context, args []string) error
	Backup(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the reminder CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that prompt for more input read
// from the same reader. The loop exits on EOF or when the user types "exit"
// or "quit".
//
//	Not logged in:
//	  - help                  show available commands
//	  - signup                create an account
//	  - login                 open a session
//	  - reset                 request a password reset mail
//	  - list [date|today]     list events (empty while logged out)
//	  - backup <file>         write the device key space to a file
//	  - restore <file>        replace the device key space from a file
//	  - exit | quit           leave the program
//
//	Logged in, additionally:
//	  - add                   create an event
//	  - edit <id>             change an event
//	  - delete <id>           delete an event
//	  - export <file>         write all events as an .ics calendar
//	  - passwd                change the password
//	  - profile               change the username
//	  - whoami                show the session identity
//	  - logout                end the session
//
// Handlers report their own errors; the loop only keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("sr%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: add, edit <id>, delete <id>, (l)ist [date|today], export <file>, " +
					"passwd, profile, whoami, backup <file>, restore <file>, logout, exit")
			} else {
				printlnFn("Available commands: signup, login, reset, (l)ist, backup <file>, restore <file>, exit")
			}

		case "signup", "register":
			_ = a.Signup(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "reset":
			_ = a.ResetPassword(ctx)
		case "passwd":
			_ = a.ChangePassword(ctx)
		case "profile":
			_ = a.Profile(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)

		case "add":
			_ = a.AddEvent(ctx)
		case "edit":
			_ = a.EditEvent(ctx, args)
		case "delete", "rm":
			_ = a.DeleteEvent(ctx, args)
		case "l", "list":
			_ = a.List(ctx, args)

		case "export":
			_ = a.Export(ctx, args)
		case "backup":
			_ = a.Backup(ctx, args)
		case "restore":
			_ = a.Restore(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
