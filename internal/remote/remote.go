// Package remote defines the interface to the user's external storage
// account. The provider's folder graph is the source of truth: nothing here
// mirrors the remote tree locally, callers re-query on every operation.
package remote

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a file or folder id no longer resolves at the
// provider (deleted or trashed out-of-band).
var ErrNotFound = errors.New("remote resource not found")

// Quota reports the external account's storage limits in bytes.
// A zero Limit means the account is unbounded.
type Quota struct {
	Limit int64
	Usage int64
}

// FileInfo is the minimal metadata the federation core needs about a remote
// file or folder.
type FileInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Size     int64    `json:"size"`
	Parents  []string `json:"parents,omitempty"`
}

// Drive is a per-user, per-token view of the external storage account.
// Implementations are built from a valid access token and make no attempt to
// refresh it; token lifecycle is the link service's job.
type Drive interface {
	// AccountEmail returns the provider-side verified identity.
	AccountEmail(ctx context.Context) (string, error)

	// StorageQuota returns the account's storage limit and usage.
	StorageQuota(ctx context.Context) (Quota, error)

	// FindFolder returns the id of a non-trashed folder with exactly this
	// name directly under parentID, or "" when none exists. First match wins.
	FindFolder(ctx context.Context, name, parentID string) (string, error)

	// CreateFolder creates a folder under parentID and returns its id.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)

	// FolderExists reports whether folderID still resolves to a non-trashed
	// folder. Used to validate cached ids before reuse.
	FolderExists(ctx context.Context, folderID string) (bool, error)

	// FindFile returns the id of a non-trashed file with exactly this name
	// directly under parentID, or "" when none exists.
	FindFile(ctx context.Context, name, parentID string) (string, error)

	// CreateFile performs a single multipart write (metadata plus bytes)
	// into parentID.
	CreateFile(ctx context.Context, name, mimeType string, content []byte, parentID string) (*FileInfo, error)

	// FileParents returns the current parent folder ids of fileID.
	// Returns ErrNotFound when the file is gone or trashed.
	FileParents(ctx context.Context, fileID string) ([]string, error)

	// ReparentFile adds addParentID and removes removeParentIDs in one
	// atomic patch so the file never transiently has zero or two parents.
	// An empty addParentID only removes.
	ReparentFile(ctx context.Context, fileID, addParentID string, removeParentIDs []string) error
}

// Factory builds a Drive from a fresh access token.
type Factory func(ctx context.Context, accessToken string) (Drive, error)
