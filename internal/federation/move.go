package federation

import (
	"context"
	"errors"
	"fmt"

	"github.com/moonshakerlabs/taxdrive/internal/model"
	"github.com/moonshakerlabs/taxdrive/internal/remote"
)

// Move reclassifies an already-uploaded document: it resolves the hierarchy
// for the new country/year and repoints the file's parents in a single
// atomic patch, so the file never transiently has two parents or none.
func (s *Service) Move(ctx context.Context, userID, remoteFileID, newCountry, newFiscalYearLabel string) (*model.RemoteDocument, error) {
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
	destID, err := ensurePath(ctx, drv, rootID, newCountry, newFiscalYearLabel)
	if err != nil {
		return nil, err
	}

	parents, err := drv.FileParents(ctx, remoteFileID)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRemoteFileMissing, remoteFileID)
		}
		return nil, err
	}

	addParent := destID
	removeParents := make([]string, 0, len(parents))
	for _, p := range parents {
		if p == destID {
			// Already filed there; nothing to add.
			addParent = ""
			continue
		}
		removeParents = append(removeParents, p)
	}

	if addParent != "" || len(removeParents) > 0 {
		if err := drv.ReparentFile(ctx, remoteFileID, addParent, removeParents); err != nil {
			if errors.Is(err, remote.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrRemoteFileMissing, remoteFileID)
			}
			return nil, &RemoteWriteError{Err: err}
		}
	}

	return &model.RemoteDocument{
		FileID: remoteFileID,
		Path:   s.displayPath(newCountry, newFiscalYearLabel),
	}, nil
}
