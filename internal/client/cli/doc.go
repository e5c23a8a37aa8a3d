// Package cli provides the interactive Students Reminder command-line client.
//
// It wires configuration, the SQLite-backed key space, the identity and
// event stores, the reminder job, and an interactive REPL. All state lives
// on the device; there is no server.
//
// Key features:
//   - Signup / Login / Logout / password reset and change / profile
//   - Add, edit, delete and list calendar events shared by every account
//   - Export events as an .ics calendar
//   - Backup and restore of the whole device key space
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
