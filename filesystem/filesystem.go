// Package filesystem provides a virtualized abstraction layer for all filesystem operations.
//
// Downloads, playlists segments and configuration all go through the afero backend
// returned by API, so tests can swap in an in-memory filesystem.
package filesystem

import "github.com/spf13/afero"

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the active afero.Afero instance for filesystem interaction.
func API() afero.Afero {
	return backend
}

// Set replaces the backend with an arbitrary afero filesystem.
func Set(fs afero.Fs) {
	backend = afero.Afero{Fs: fs}
}

// SetOsFs restores the filesystem backend to the native operating system implementation.
func SetOsFs() {
	Set(afero.NewOsFs())
}

// SetMemMapFs initializes a volatile in-memory filesystem backend for unit testing.
func SetMemMapFs() {
	Set(afero.NewMemMapFs())
}
