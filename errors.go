package shellterm

import (
	"errors"
	"fmt"
	"time"
)

// ErrShellNotAlive reports that the underlying bash process has exited and
// could not be restarted.
var ErrShellNotAlive = errors.New("shell process is not alive")

// ErrUnsupportedPlatform reports that the interactive shell backend is not
// available on this platform.
var ErrUnsupportedPlatform = errors.New("interactive shell is not supported on this platform")

// CommandRunningError is returned when a new command is submitted while a
// previous one is still running. The caller should poll with an empty
// command, send input, or interrupt instead.
type CommandRunningError struct {
	Command string
	Started time.Time
}

func (e *CommandRunningError) Error() string {
	elapsed := time.Since(e.Started).Round(time.Second)
	return fmt.Sprintf(
		"a command is already running: %q (started %s ago); "+
			"send an empty command to check status, send text or a special key to interact with it, "+
			"or send an interrupt to stop it",
		e.Command, elapsed)
}

// Elapsed returns how long the running command has been executing.
func (e *CommandRunningError) Elapsed() time.Duration {
	return time.Since(e.Started)
}
