// Package link owns the StorageLink record: persistence in DynamoDB,
// access-token lifecycle, and provider-side token revocation.
package link

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/oauth2"

	"github.com/moonshakerlabs/taxdrive/internal/crypto"
	"github.com/moonshakerlabs/taxdrive/internal/model"
)

var (
	// ErrNotLinked is returned when a user has no StorageLink record.
	ErrNotLinked = errors.New("no external storage linked")

	// ErrRelinkRequired is returned when the stored refresh token has been
	// revoked or invalidated at the provider. Retrying with the same token
	// cannot succeed; the user must run the link flow again.
	ErrRelinkRequired = errors.New("refresh token rejected, re-link required")
)

const googleRevokeEndpoint = "https://oauth2.googleapis.com/revoke"

// Service manages StorageLink records and their credentials. With a nil
// DynamoDB client it falls back to an in-memory map, used by DEV_MODE and
// tests.
type Service struct {
	oauthConfig *oauth2.Config
	dynamo      *dynamodb.Client
	tableName   string
	cipher      crypto.TokenCipher

	revokeEndpoint string
	httpClient     *http.Client

	// In-memory fallback
	links map[string]model.StorageLink
	mu    sync.RWMutex
}

// NewService creates a Service. The oauth2.Config is constructed by the
// caller (client id/secret, redirect URL, Google endpoint and Drive scopes).
func NewService(oauthConfig *oauth2.Config, dynamo *dynamodb.Client, tableName string, cipher crypto.TokenCipher) *Service {
	return &Service{
		oauthConfig:    oauthConfig,
		dynamo:         dynamo,
		tableName:      tableName,
		cipher:         cipher,
		revokeEndpoint: googleRevokeEndpoint,
		httpClient:     http.DefaultClient,
		links:          make(map[string]model.StorageLink),
	}
}

// SetRevokeEndpoint overrides the revocation endpoint. Test hook.
func (s *Service) SetRevokeEndpoint(url string) { s.revokeEndpoint = url }

// SetHTTPClient overrides the client used for revocation calls. Test hook.
func (s *Service) SetHTTPClient(c *http.Client) { s.httpClient = c }

// Config returns the OAuth2 config.
func (s *Service) Config() *oauth2.Config { return s.oauthConfig }

// AuthCodeURL returns the provider consent URL. Offline access plus forced
// approval so a refresh token is always issued.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for tokens. redirectURI, when
// non-empty, overrides the configured redirect (it must match the URI the
// code was obtained with).
func (s *Service) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}
	tok, err := s.oauthConfig.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return tok, nil
}

// SaveLink persists a full StorageLink after a successful exchange. The
// refresh token is sealed before it leaves this package. When the provider
// returns no refresh token (repeat consent), an existing link's sealed token
// is carried over; with no prior link that is an error.
func (s *Service) SaveLink(ctx context.Context, userID, externalEmail string, tok *oauth2.Token, rootFolderID string) error {
	sealedRefresh := ""
	if tok.RefreshToken != "" {
		sealed, err := s.cipher.Seal(ctx, tok.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to seal refresh token: %w", err)
		}
		sealedRefresh = sealed
	} else if existing, err := s.GetLink(ctx, userID); err == nil {
		sealedRefresh = existing.EncryptedRefreshToken
	}
	if sealedRefresh == "" {
		return fmt.Errorf("no refresh token in provider response")
	}

	link := model.StorageLink{
		UserID:                userID,
		AccessToken:           tok.AccessToken,
		EncryptedRefreshToken: sealedRefresh,
		TokenExpiry:           tok.Expiry,
		ExternalEmail:         externalEmail,
		RootFolderID:          rootFolderID,
		UpdatedAt:             time.Now(),
	}

	if s.dynamo == nil {
		s.mu.Lock()
		s.links[userID] = link
		s.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(link)
	if err != nil {
		return fmt.Errorf("failed to marshal storage link: %w", err)
	}
	if _, err := s.dynamo.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to save storage link: %w", err)
	}
	return nil
}

// GetLink loads the StorageLink for userID, or ErrNotLinked.
func (s *Service) GetLink(ctx context.Context, userID string) (*model.StorageLink, error) {
	if s.dynamo == nil {
		s.mu.RLock()
		link, ok := s.links[userID]
		s.mu.RUnlock()
		if !ok {
			return nil, ErrNotLinked
		}
		return &link, nil
	}

	out, err := s.dynamo.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load storage link: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotLinked
	}
	var link model.StorageLink
	if err := attributevalue.UnmarshalMap(out.Item, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal storage link: %w", err)
	}
	return &link, nil
}

// DeleteLink removes the StorageLink record. Deleting an absent record is
// not an error; local teardown must always succeed.
func (s *Service) DeleteLink(ctx context.Context, userID string) error {
	if s.dynamo == nil {
		s.mu.Lock()
		delete(s.links, userID)
		s.mu.Unlock()
		return nil
	}
	if _, err := s.dynamo.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete storage link: %w", err)
	}
	return nil
}

// UpdateRootFolderID persists a newly resolved root folder id. Last write
// wins; there is no optimistic-concurrency token on the link row.
func (s *Service) UpdateRootFolderID(ctx context.Context, userID, folderID string) error {
	if s.dynamo == nil {
		s.mu.Lock()
		if link, ok := s.links[userID]; ok {
			link.RootFolderID = folderID
			link.UpdatedAt = time.Now()
			s.links[userID] = link
		}
		s.mu.Unlock()
		return nil
	}
	_, err := s.dynamo.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: aws.String("SET root_folder_id = :fid, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fid": &types.AttributeValueMemberS{Value: folderID},
			":now": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update root folder id: %w", err)
	}
	return nil
}

// saveAccessToken persists a refreshed access token and its expiry.
func (s *Service) saveAccessToken(ctx context.Context, userID, accessToken string, expiry time.Time) error {
	if s.dynamo == nil {
		s.mu.Lock()
		if link, ok := s.links[userID]; ok {
			link.AccessToken = accessToken
			link.TokenExpiry = expiry
			link.UpdatedAt = time.Now()
			s.links[userID] = link
		}
		s.mu.Unlock()
		return nil
	}
	_, err := s.dynamo.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: aws.String("SET access_token = :tok, token_expiry = :exp, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tok": &types.AttributeValueMemberS{Value: accessToken},
			":exp": &types.AttributeValueMemberS{Value: expiry.Format(time.RFC3339Nano)},
			":now": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	return nil
}

// EnsureFreshToken returns a usable access token for the link. The cached
// token is returned unchanged while its expiry is in the future; otherwise a
// refresh grant is performed, the new (access_token, token_expiry) pair is
// persisted last-write-wins, and the link is updated in place. A rejected
// refresh token surfaces ErrRelinkRequired and is never retried here.
func (s *Service) EnsureFreshToken(ctx context.Context, link *model.StorageLink) (string, error) {
	if time.Now().Before(link.TokenExpiry) {
		return link.AccessToken, nil
	}

	refreshToken, err := s.cipher.Open(ctx, link.EncryptedRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to open refresh token: %w", err)
	}

	src := s.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", fmt.Errorf("%w: %v", ErrRelinkRequired, retrieveErr.ErrorCode)
		}
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	if err := s.saveAccessToken(ctx, link.UserID, tok.AccessToken, tok.Expiry); err != nil {
		return "", err
	}
	link.AccessToken = tok.AccessToken
	link.TokenExpiry = tok.Expiry
	return tok.AccessToken, nil
}

// Revoke invalidates a single token at the provider. Google accepts either
// an access or a refresh token; revoking a refresh token also invalidates
// the access tokens issued from it.
func (s *Service) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke rejected with status %d", resp.StatusCode)
	}
	return nil
}

// RevokeLinkTokens revokes the link's access and refresh tokens. Both calls
// are attempted; the first failure is returned so callers can log it.
func (s *Service) RevokeLinkTokens(ctx context.Context, link *model.StorageLink) error {
	var firstErr error
	if link.AccessToken != "" {
		if err := s.Revoke(ctx, link.AccessToken); err != nil {
			firstErr = err
		}
	}
	if refreshToken, err := s.cipher.Open(ctx, link.EncryptedRefreshToken); err == nil && refreshToken != "" {
		if err := s.Revoke(ctx, refreshToken); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
