// Package storage defines the content-root file-system abstraction.
package storage

import "time"

// FileInfo is a lightweight record for a file found by List.
type FileInfo struct {
	Path      string    // relative to the content root
	Checksum  string    // SHA-256 of the file content
	UpdatedAt time.Time // file modification time
}

// Provider is the interface for content-root file operations. All paths are
// relative to the content root; implementations must reject paths that
// resolve outside it.
type Provider interface {
	// List walks dir (relative to the content root) and returns metadata
	// for every page file.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether a file exists at path.
	Exists(path string) bool
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
	// Root returns the absolute content root directory.
	Root() string
}
