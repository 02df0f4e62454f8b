package googledrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/moonshakerlabs/taxdrive/internal/remote"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Drive implements remote.Drive against the Google Drive v3 API.
type Drive struct {
	files    *drive.Service
	userinfo *oauth2v2.Service
}

// New builds a Drive bound to a single access token. The token is not
// refreshed here; callers obtain a fresh one from the link service first.
func New(ctx context.Context, accessToken string) (*Drive, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})

	files, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %v", err)
	}
	userinfo, err := oauth2v2.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create userinfo client: %v", err)
	}
	return &Drive{files: files, userinfo: userinfo}, nil
}

// Factory adapts New to the remote.Factory signature.
func Factory(ctx context.Context, accessToken string) (remote.Drive, error) {
	return New(ctx, accessToken)
}

// AccountEmail fetches the authenticated account's verified identity.
func (d *Drive) AccountEmail(ctx context.Context) (string, error) {
	ui, err := d.userinfo.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to get user info: %v", err)
	}
	return ui.Email, nil
}

// StorageQuota fetches the account's storage limit and usage in bytes.
// Drive omits the limit for unlimited accounts, which maps to Limit == 0.
func (d *Drive) StorageQuota(ctx context.Context) (remote.Quota, error) {
	about, err := d.files.About.Get().Fields("storageQuota").Context(ctx).Do()
	if err != nil {
		return remote.Quota{}, fmt.Errorf("unable to get storage quota: %v", err)
	}
	if about.StorageQuota == nil {
		return remote.Quota{}, nil
	}
	return remote.Quota{
		Limit: about.StorageQuota.Limit,
		Usage: about.StorageQuota.Usage,
	}, nil
}

// escapeQuery escapes a value for interpolation into a Drive search query,
// where names are single-quoted ("Côte d'Ivoire" would otherwise break the
// query string).
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func (d *Drive) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), folderMimeType, escapeQuery(parentID))
	r, err := d.files.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to search for folder %q: %v", name, err)
	}
	if len(r.Files) == 0 {
		return "", nil
	}
	// First match wins; duplicates created out-of-band are not merged.
	return r.Files[0].Id, nil
}

func (d *Drive) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	f := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}
	res, err := d.files.Files.Create(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create folder %q: %v", name, err)
	}
	return res.Id, nil
}

func (d *Drive) FolderExists(ctx context.Context, folderID string) (bool, error) {
	f, err := d.files.Files.Get(folderID).Fields("id, mimeType, trashed").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("unable to get folder %q: %v", folderID, err)
	}
	return !f.Trashed && f.MimeType == folderMimeType, nil
}

func (d *Drive) FindFile(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), escapeQuery(parentID))
	r, err := d.files.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to search for file %q: %v", name, err)
	}
	if len(r.Files) == 0 {
		return "", nil
	}
	return r.Files[0].Id, nil
}

func (d *Drive) CreateFile(ctx context.Context, name, mimeType string, content []byte, parentID string) (*remote.FileInfo, error) {
	f := &drive.File{
		Name:    name,
		Parents: []string{parentID},
	}
	res, err := d.files.Files.Create(f).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeType)).
		Fields("id, name, mimeType, size, parents").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to upload file %q: %v", name, err)
	}
	return &remote.FileInfo{
		ID:       res.Id,
		Name:     res.Name,
		MimeType: res.MimeType,
		Size:     res.Size,
		Parents:  res.Parents,
	}, nil
}

func (d *Drive) FileParents(ctx context.Context, fileID string) ([]string, error) {
	f, err := d.files.Files.Get(fileID).Fields("id, parents, trashed").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, remote.ErrNotFound
		}
		return nil, fmt.Errorf("unable to get file %q: %v", fileID, err)
	}
	if f.Trashed {
		return nil, remote.ErrNotFound
	}
	return f.Parents, nil
}

// ReparentFile issues a single Files.Update patch that adds and removes
// parents together, so the file never observes an intermediate parent set.
func (d *Drive) ReparentFile(ctx context.Context, fileID, addParentID string, removeParentIDs []string) error {
	call := d.files.Files.Update(fileID, &drive.File{}).Fields("id, parents").Context(ctx)
	if addParentID != "" {
		call = call.AddParents(addParentID)
	}
	if len(removeParentIDs) > 0 {
		call = call.RemoveParents(strings.Join(removeParentIDs, ","))
	}
	if _, err := call.Do(); err != nil {
		if isNotFound(err) {
			return remote.ErrNotFound
		}
		return fmt.Errorf("unable to move file %q: %v", fileID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == 404
	}
	return false
}
