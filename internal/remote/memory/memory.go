// Package memory implements remote.Drive in process memory. It backs
// DEV_MODE, where the full link/upload/move flow must run without Google
// credentials, and the federation tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/moonshakerlabs/taxdrive/internal/remote"
)

const folderMimeType = "application/vnd.google-apps.folder"

type node struct {
	id      string
	name    string
	mime    string
	content []byte
	parents []string
	trashed bool
}

// Drive is an in-memory remote account. The zero value is not usable; use New.
type Drive struct {
	mu    sync.Mutex
	nodes map[string]*node

	// Account identity and quota reported to the gate checks.
	email      string
	quotaLimit int64
	quotaUsage int64
}

// New creates an account owned by email with unbounded quota.
func New(email string) *Drive {
	return &Drive{
		nodes: map[string]*node{
			"root": {id: "root", name: "root", mime: folderMimeType},
		},
		email: email,
	}
}

// SetQuota fixes the limit/usage reported by StorageQuota. A zero limit means
// unbounded, matching the provider contract.
func (d *Drive) SetQuota(limit, usage int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quotaLimit, d.quotaUsage = limit, usage
}

// Trash marks a node trashed, simulating out-of-band deletion at the provider.
func (d *Drive) Trash(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.nodes[id]; ok {
		n.trashed = true
	}
}

// FolderCount returns how many live folders carry this name under parentID.
// Test hook for duplicate-detection assertions.
func (d *Drive) FolderCount(name, parentID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, n := range d.nodes {
		if n.mime == folderMimeType && !n.trashed && n.name == name && hasParent(n, parentID) {
			count++
		}
	}
	return count
}

func (d *Drive) AccountEmail(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.email, nil
}

func (d *Drive) StorageQuota(context.Context) (remote.Quota, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return remote.Quota{Limit: d.quotaLimit, Usage: d.quotaUsage}, nil
}

func (d *Drive) FindFolder(_ context.Context, name, parentID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.nodes {
		if n.mime == folderMimeType && !n.trashed && n.name == name && hasParent(n, parentID) {
			return n.id, nil
		}
	}
	return "", nil
}

func (d *Drive) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := &node{
		id:      "folder-" + uuid.NewString(),
		name:    name,
		mime:    folderMimeType,
		parents: []string{parentID},
	}
	d.nodes[n.id] = n
	return n.id, nil
}

func (d *Drive) FolderExists(_ context.Context, folderID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[folderID]
	return ok && !n.trashed && n.mime == folderMimeType, nil
}

func (d *Drive) FindFile(_ context.Context, name, parentID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.nodes {
		if !n.trashed && n.name == name && hasParent(n, parentID) {
			return n.id, nil
		}
	}
	return "", nil
}

func (d *Drive) CreateFile(_ context.Context, name, mimeType string, content []byte, parentID string) (*remote.FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.nodes[parentID]; !ok || p.trashed {
		return nil, fmt.Errorf("parent folder %q does not exist", parentID)
	}
	n := &node{
		id:      "file-" + uuid.NewString(),
		name:    name,
		mime:    mimeType,
		content: append([]byte(nil), content...),
		parents: []string{parentID},
	}
	d.nodes[n.id] = n
	d.quotaUsage += int64(len(content))
	return d.info(n), nil
}

func (d *Drive) FileParents(_ context.Context, fileID string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[fileID]
	if !ok || n.trashed {
		return nil, remote.ErrNotFound
	}
	return append([]string(nil), n.parents...), nil
}

func (d *Drive) ReparentFile(_ context.Context, fileID, addParentID string, removeParentIDs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[fileID]
	if !ok || n.trashed {
		return remote.ErrNotFound
	}
	remove := make(map[string]bool, len(removeParentIDs))
	for _, id := range removeParentIDs {
		remove[id] = true
	}
	kept := n.parents[:0]
	for _, p := range n.parents {
		if !remove[p] {
			kept = append(kept, p)
		}
	}
	n.parents = kept
	if addParentID != "" && !hasParent(n, addParentID) {
		n.parents = append(n.parents, addParentID)
	}
	return nil
}

func (d *Drive) info(n *node) *remote.FileInfo {
	return &remote.FileInfo{
		ID:       n.id,
		Name:     n.name,
		MimeType: n.mime,
		Size:     int64(len(n.content)),
		Parents:  append([]string(nil), n.parents...),
	}
}

func hasParent(n *node, parentID string) bool {
	for _, p := range n.parents {
		if p == parentID {
			return true
		}
	}
	return false
}
