package federation

import (
	"context"
	"fmt"

	"github.com/moonshakerlabs/taxdrive/internal/model"
	"github.com/moonshakerlabs/taxdrive/internal/remote"
)

// resolveFolder finds a non-trashed folder with this exact name directly
// under parentID, creating it when absent. Find-else-create, not a
// provider-side upsert: the query-before-create is what keeps the taxonomy
// collision-free for the single writer the per-user lock guarantees.
func resolveFolder(ctx context.Context, drv remote.Drive, name, parentID string) (string, error) {
	id, err := drv.FindFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("folder lookup %q failed: %w", name, err)
	}
	if id != "" {
		return id, nil
	}
	id, err = drv.CreateFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("folder create %q failed: %w", name, err)
	}
	return id, nil
}

// ensureRoot returns a verified root folder id for the link. A cached id is
// trusted only after an existence check; a root deleted or trashed
// out-of-band is transparently re-resolved and the new id persisted.
func (s *Service) ensureRoot(ctx context.Context, drv remote.Drive, stored *model.StorageLink) (string, error) {
	if stored.RootFolderID != "" {
		ok, err := drv.FolderExists(ctx, stored.RootFolderID)
		if err != nil {
			return "", fmt.Errorf("root folder check failed: %w", err)
		}
		if ok {
			return stored.RootFolderID, nil
		}
	}

	rootID, err := resolveFolder(ctx, drv, s.rootFolderName, "root")
	if err != nil {
		return "", err
	}
	if err := s.links.UpdateRootFolderID(ctx, stored.UserID, rootID); err != nil {
		return "", err
	}
	stored.RootFolderID = rootID
	return rootID, nil
}

// ensurePath builds the fixed two levels below the root: country under root,
// fiscal-year label under country. Names pass through verbatim; producing a
// stable fiscal-year label per country's convention is the caller's job.
// Nothing below the root is cached, so externally reorganized trees heal on
// the next call at the cost of two extra lookups.
func ensurePath(ctx context.Context, drv remote.Drive, rootID, country, fiscalYearLabel string) (string, error) {
	countryID, err := resolveFolder(ctx, drv, country, rootID)
	if err != nil {
		return "", err
	}
	yearID, err := resolveFolder(ctx, drv, fiscalYearLabel, countryID)
	if err != nil {
		return "", err
	}
	return yearID, nil
}

// displayPath is the logical location reported back to callers.
func (s *Service) displayPath(country, fiscalYearLabel string) string {
	return s.rootFolderName + "/" + country + "/" + fiscalYearLabel
}
