// Package federation keeps a deterministic root/country/fiscal-year folder
// taxonomy synchronized with a user's linked Google Drive account. It owns
// the link lifecycle (exchange, status, disconnect), the identity and quota
// gate, and the upload/move orchestration on top of the folder resolver.
package federation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/moonshakerlabs/taxdrive/internal/link"
	"github.com/moonshakerlabs/taxdrive/internal/model"
	"github.com/moonshakerlabs/taxdrive/internal/oplock"
	"github.com/moonshakerlabs/taxdrive/internal/remote"
)

// MinFreeBytes is the free space an external account must have at link time
// (500 MiB). Checked once during exchange and never re-verified; later
// exhaustion surfaces as a RemoteWriteError on upload.
const MinFreeBytes int64 = 500 * 1024 * 1024

// DefaultRootFolderName is the top-level folder created in the user's Drive.
const DefaultRootFolderName = "TaxDrive"

// Service orchestrates all federation operations. Every public method
// serializes on the user's operation lock; within one operation, provider
// calls run strictly in sequence.
type Service struct {
	links          *link.Service
	drives         remote.Factory
	locks          oplock.Locker
	rootFolderName string
	minFreeBytes   int64
}

// NewService wires the federation core.
func NewService(links *link.Service, drives remote.Factory, locks oplock.Locker) *Service {
	return &Service{
		links:          links,
		drives:         drives,
		locks:          locks,
		rootFolderName: DefaultRootFolderName,
		minFreeBytes:   MinFreeBytes,
	}
}

// Exchange trades an authorization code for tokens, runs the identity and
// quota gate, resolves the root folder, and persists the StorageLink. On any
// failure the freshly issued tokens are revoked and no record is left behind.
// appEmail is the application account's registered identity, compared
// case-insensitively against the provider's.
func (s *Service) Exchange(ctx context.Context, userID, appEmail, code, redirectURI string) (*model.LinkStatus, error) {
	owner, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, userID, owner)

	tok, err := s.links.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	drv, err := s.drives(ctx, tok.AccessToken)
	if err != nil {
		s.revokeIssued(ctx, tok.AccessToken, tok.RefreshToken)
		return nil, err
	}

	externalEmail, err := drv.AccountEmail(ctx)
	if err != nil {
		s.revokeIssued(ctx, tok.AccessToken, tok.RefreshToken)
		return nil, fmt.Errorf("identity check failed: %w", err)
	}
	if !strings.EqualFold(externalEmail, appEmail) {
		s.revokeIssued(ctx, tok.AccessToken, tok.RefreshToken)
		return nil, &IdentityMismatchError{Expected: appEmail, Actual: externalEmail}
	}

	quota, err := drv.StorageQuota(ctx)
	if err != nil {
		s.revokeIssued(ctx, tok.AccessToken, tok.RefreshToken)
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	// A zero limit means the account is unbounded.
	if quota.Limit > 0 {
		available := quota.Limit - quota.Usage
		if available < s.minFreeBytes {
			s.revokeIssued(ctx, tok.AccessToken, tok.RefreshToken)
			return nil, &QuotaError{AvailableBytes: available}
		}
	}

	rootID, err := resolveFolder(ctx, drv, s.rootFolderName, "root")
	if err != nil {
		s.revokeIssued(ctx, tok.AccessToken, tok.RefreshToken)
		return nil, err
	}

	if err := s.links.SaveLink(ctx, userID, externalEmail, tok, rootID); err != nil {
		s.revokeIssued(ctx, tok.AccessToken, tok.RefreshToken)
		return nil, err
	}

	return &model.LinkStatus{
		Connected:     true,
		ExternalEmail: externalEmail,
		RootFolderID:  rootID,
	}, nil
}

// Status reports the link state from the credential store alone; no provider
// calls are made.
func (s *Service) Status(ctx context.Context, userID string) (*model.LinkStatus, error) {
	stored, err := s.links.GetLink(ctx, userID)
	if err != nil {
		if err == link.ErrNotLinked {
			return &model.LinkStatus{Connected: false}, nil
		}
		return nil, err
	}
	return &model.LinkStatus{
		Connected:     true,
		ExternalEmail: stored.ExternalEmail,
		RootFolderID:  stored.RootFolderID,
	}, nil
}

// Disconnect revokes the link's tokens best-effort and deletes the record.
// Revocation failing at the provider never blocks local teardown. Documents
// already hosted externally are left in place.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	owner, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer s.releaseLock(ctx, userID, owner)

	stored, err := s.links.GetLink(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.links.RevokeLinkTokens(ctx, stored); err != nil {
		log.Printf("disconnect: token revocation for user %s failed: %v", userID, err)
	}
	return s.links.DeleteLink(ctx, userID)
}

// revokeIssued revokes tokens issued during a failed exchange so they are
// not left dangling. Failures are logged; the original failure wins.
func (s *Service) revokeIssued(ctx context.Context, accessToken, refreshToken string) {
	if accessToken != "" {
		if err := s.links.Revoke(ctx, accessToken); err != nil {
			log.Printf("link abort: access token revocation failed: %v", err)
		}
	}
	if refreshToken != "" {
		if err := s.links.Revoke(ctx, refreshToken); err != nil {
			log.Printf("link abort: refresh token revocation failed: %v", err)
		}
	}
}

func (s *Service) releaseLock(ctx context.Context, userID, owner string) {
	if err := s.locks.Release(ctx, userID, owner); err != nil {
		log.Printf("failed to release operation lock for user %s: %v", userID, err)
	}
}

// driveFor loads the user's link, refreshes the access token if needed, and
// builds a provider client. Shared preamble of upload and move.
func (s *Service) driveFor(ctx context.Context, userID string) (*model.StorageLink, remote.Drive, error) {
	stored, err := s.links.GetLink(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	accessToken, err := s.links.EnsureFreshToken(ctx, stored)
	if err != nil {
		return nil, nil, err
	}
	drv, err := s.drives(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	return stored, drv, nil
}
