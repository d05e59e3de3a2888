// Package shellterm is a headless command-execution backend for AI agents.
//
// It combines a terminal protocol engine with an interactive bash
// supervisor. The engine parses ANSI/VT escape sequences into a styled
// character grid and renders it back as the plain text an agent sees.
// The supervisor keeps a long-lived bash process alive across calls,
// detects command completion through a prompt sentinel, and never blocks
// the caller while a command runs.
//
// # Terminal engine
//
// Emulator wraps a Screen behind an ANSI decoder. Feed it raw bytes and
// read back rendered lines:
//
//	em := shellterm.NewEmulator(shellterm.WithColumns(160))
//	em.Process("Hello\r\nWorld\x1b[1m!\x1b[0m")
//	lines := em.Display() // ["Hello", "World!"]
//
// Screens grow row by row up to a configurable line cap; when output
// exceeds it, the oldest rows are evicted. SmartTruncate collapses the
// middle of very large screens around a visible marker so that leading
// context and recent output survive.
//
// OutputDiff extracts only the lines appended since the previous render,
// and RenderCache memoizes full renders with an LRU+TTL policy, so that
// repeated status polls against a running command stay cheap.
//
// # Shell supervisor
//
// InteractiveShell runs bash over pipes with non-blocking reads; PtyShell
// runs it on a real pseudo-terminal for programs that insist on one.
// Both detect completion by watching for the prompt sentinel, bound
// accumulated output, and interrupt stuck commands with a graduated
// ladder (Ctrl-C, Ctrl-C again, SIGTERM) that never reaches SIGKILL.
//
// Session ties the two halves together. Session.ExecuteInteractive runs a
// command (or polls a running one with an empty command), renders the
// incremental output, refreshes the working directory, counts background
// jobs, and returns a formatted block:
//
//	<rendered output>
//
//	---
//
//	status = process exited with code 0
//	cwd = /home/user/project
package shellterm
