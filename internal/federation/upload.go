package federation

import (
	"context"

	"github.com/moonshakerlabs/taxdrive/internal/model"
)

// UploadInput classifies a document for placement in the remote taxonomy.
type UploadInput struct {
	Content          []byte
	MimeType         string
	Country          string
	FiscalYearLabel  string
	Category         string
	OriginalFilename string
}

// Upload writes a document into the user's linked Drive under
// root/country/fiscal-year, resolving a collision-free name first. The
// binding is returned, not recorded: the caller commits it to the document
// entity only after the remote write is confirmed, so a failure at any step
// leaves no partial state.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (*model.RemoteDocument, error) {
	owner, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, userID, owner)

	stored, drv, err := s.driveFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	rootID, err := s.ensureRoot(ctx, drv, stored)
	if err != nil {
		return nil, err
	}
	targetID, err := ensurePath(ctx, drv, rootID, in.Country, in.FiscalYearLabel)
	if err != nil {
		return nil, err
	}

	name, err := uniqueName(ctx, drv, targetID, in.Category+"-"+in.OriginalFilename)
	if err != nil {
		return nil, err
	}

	info, err := drv.CreateFile(ctx, name, in.MimeType, in.Content, targetID)
	if err != nil {
		return nil, &RemoteWriteError{Err: err}
	}

	return &model.RemoteDocument{
		FileID:      info.ID,
		DisplayName: name,
		Path:        s.displayPath(in.Country, in.FiscalYearLabel),
	}, nil
}
