package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/moonshakerlabs/taxdrive/internal/remote"
)

func TestFindFolder_AbsentReturnsEmpty(t *testing.T) {
	d := New("alice@x.com")
	id, err := d.FindFolder(context.Background(), "Missing", "root")
	if err != nil {
		t.Fatalf("FindFolder failed: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty", id)
	}
}

func TestCreateThenFindFolder(t *testing.T) {
	ctx := context.Background()
	d := New("alice@x.com")

	created, err := d.CreateFolder(ctx, "France", "root")
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	found, err := d.FindFolder(ctx, "France", "root")
	if err != nil {
		t.Fatalf("FindFolder failed: %v", err)
	}
	if found != created {
		t.Errorf("found %q, want %q", found, created)
	}

	// Same name under a different parent is a different folder.
	other, err := d.FindFolder(ctx, "France", created)
	if err != nil {
		t.Fatalf("FindFolder failed: %v", err)
	}
	if other != "" {
		t.Errorf("found %q under wrong parent", other)
	}
}

func TestTrashedFolderIsInvisible(t *testing.T) {
	ctx := context.Background()
	d := New("alice@x.com")

	id, err := d.CreateFolder(ctx, "France", "root")
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	d.Trash(id)

	found, err := d.FindFolder(ctx, "France", "root")
	if err != nil {
		t.Fatalf("FindFolder failed: %v", err)
	}
	if found != "" {
		t.Errorf("trashed folder still found: %q", found)
	}
	exists, err := d.FolderExists(ctx, id)
	if err != nil {
		t.Fatalf("FolderExists failed: %v", err)
	}
	if exists {
		t.Error("trashed folder reported as existing")
	}
}

func TestCreateFile_RequiresLiveParent(t *testing.T) {
	ctx := context.Background()
	d := New("alice@x.com")

	if _, err := d.CreateFile(ctx, "x.pdf", "application/pdf", []byte("x"), "nope"); err == nil {
		t.Error("expected error for missing parent")
	}

	id, err := d.CreateFolder(ctx, "France", "root")
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	d.Trash(id)
	if _, err := d.CreateFile(ctx, "x.pdf", "application/pdf", []byte("x"), id); err == nil {
		t.Error("expected error for trashed parent")
	}
}

func TestReparentFile(t *testing.T) {
	ctx := context.Background()
	d := New("alice@x.com")

	src, err := d.CreateFolder(ctx, "2023", "root")
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	dst, err := d.CreateFolder(ctx, "2024", "root")
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	info, err := d.CreateFile(ctx, "x.pdf", "application/pdf", []byte("x"), src)
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	if err := d.ReparentFile(ctx, info.ID, dst, []string{src}); err != nil {
		t.Fatalf("ReparentFile failed: %v", err)
	}
	parents, err := d.FileParents(ctx, info.ID)
	if err != nil {
		t.Fatalf("FileParents failed: %v", err)
	}
	if len(parents) != 1 || parents[0] != dst {
		t.Errorf("parents = %v, want [%s]", parents, dst)
	}
}

func TestFileParents_MissingFile(t *testing.T) {
	d := New("alice@x.com")
	if _, err := d.FileParents(context.Background(), "ghost"); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQuotaTracksUploads(t *testing.T) {
	ctx := context.Background()
	d := New("alice@x.com")
	d.SetQuota(100, 0)

	if _, err := d.CreateFile(ctx, "x.pdf", "application/pdf", make([]byte, 40), "root"); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	q, err := d.StorageQuota(ctx)
	if err != nil {
		t.Fatalf("StorageQuota failed: %v", err)
	}
	if q.Limit != 100 || q.Usage != 40 {
		t.Errorf("quota = %+v", q)
	}
}
