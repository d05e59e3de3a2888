//go:build windows

package shellterm

import "go.uber.org/zap"

// PtyShell requires a unix pseudo-terminal; this stub keeps the API
// present so cross-platform callers compile.
type PtyShell struct{}

// PtyOption configures a PtyShell during construction.
type PtyOption func(*PtyShell)

func WithPtyDir(dir string) PtyOption          { return func(*PtyShell) {} }
func WithPtyRestrictedMode() PtyOption         { return func(*PtyShell) {} }
func WithPtySize(cols, rows int) PtyOption     { return func(*PtyShell) {} }
func WithPtyLogger(logger *zap.Logger) PtyOption { return func(*PtyShell) {} }

// NewPtyShell always fails on this platform.
func NewPtyShell(opts ...PtyOption) (*PtyShell, error) {
	return nil, ErrUnsupportedPlatform
}
