// Package autostart registers a winbridge command to run at login.
package autostart

import (
	"os"
	"strings"
)

// Entry is a command started when the user logs in.
type Entry struct {
	// Name identifies the entry; it must be unique per user.
	Name       string
	Executable string
	Args       []string
}

// ForCurrentExecutable returns an entry running this executable with args.
func ForCurrentExecutable(name string, args ...string) (Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: name, Executable: exe, Args: args}, nil
}

// CommandLine returns the entry as a single command line, quoting the parts
// that contain spaces.
func (e Entry) CommandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, p := range append([]string{e.Executable}, e.Args...) {
		if p == "" || strings.ContainsAny(p, " \t\"") {
			p = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// Enable registers the entry, replacing an existing one with the same name.
func Enable(e Entry) error {
	return enable(e)
}

// Disable removes the entry. Removing a missing entry is not an error.
func Disable(name string) error {
	return disable(name)
}

// IsEnabled reports whether an entry with the given name is registered.
func IsEnabled(name string) (bool, error) {
	return isEnabled(name)
}
