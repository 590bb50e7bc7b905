//go:build windows

package daemon

import "errors"

// Detach is not supported on Windows.
func Detach(_ []string, _ string) (int, error) {
	return 0, errors.New("daemon: detaching is not supported on windows")
}
