package model

import "time"

// StorageLink binds a user to an external Google Drive account. At most one
// active link exists per user; the record is created on a successful code
// exchange and deleted on disconnect.
type StorageLink struct {
	UserID                string    `json:"user_id" dynamodbav:"user_id"`
	AccessToken           string    `json:"-" dynamodbav:"access_token"`
	EncryptedRefreshToken string    `json:"-" dynamodbav:"encrypted_refresh_token"`
	TokenExpiry           time.Time `json:"token_expiry" dynamodbav:"token_expiry"`
	ExternalEmail         string    `json:"external_email" dynamodbav:"external_email"`
	RootFolderID          string    `json:"root_folder_id" dynamodbav:"root_folder_id"`
	UpdatedAt             time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// OperationLock serializes remote operations for one user. ExpiresAt doubles
// as the DynamoDB TTL attribute so locks left by crashed handlers age out.
type OperationLock struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	OwnerID   string `json:"owner_id" dynamodbav:"owner_id"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}

// LinkStatus reports whether a link exists, without any provider calls.
type LinkStatus struct {
	Connected     bool   `json:"connected"`
	ExternalEmail string `json:"external_identity,omitempty"`
	RootFolderID  string `json:"root_folder_id,omitempty"`
}

// RemoteDocument describes a file placed in the user's Drive hierarchy.
// Path is the logical root/country/year location for display; the caller
// records FileID on its document entity as the external-hosting binding.
type RemoteDocument struct {
	FileID      string `json:"file_id"`
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
}
