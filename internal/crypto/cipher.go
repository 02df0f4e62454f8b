// Package crypto protects long-lived OAuth refresh tokens at rest.
package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// TokenCipher seals a refresh token before it is persisted and opens it again
// when the token manager needs to perform a refresh grant.
type TokenCipher interface {
	Seal(ctx context.Context, plaintext string) (string, error)
	Open(ctx context.Context, ciphertext string) (string, error)
}

// encryptionContext binds ciphertexts to this application; KMS refuses to
// decrypt blobs sealed under a different context.
var encryptionContext = map[string]string{"app": "taxdrive"}

// KMSCipher implements TokenCipher with an AWS KMS key.
type KMSCipher struct {
	client *kms.Client
	keyID  string
}

// NewKMSCipher returns a cipher using the given key. keyID may be a key ID,
// key ARN, or alias (e.g. "alias/taxdrive-link-key").
func NewKMSCipher(client *kms.Client, keyID string) *KMSCipher {
	return &KMSCipher{client: client, keyID: keyID}
}

func (c *KMSCipher) Seal(ctx context.Context, plaintext string) (string, error) {
	out, err := c.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(c.keyID),
		Plaintext:         []byte(plaintext),
		EncryptionContext: encryptionContext,
	})
	if err != nil {
		return "", fmt.Errorf("kms encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

func (c *KMSCipher) Open(ctx context.Context, ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	out, err := c.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    blob,
		KeyId:             aws.String(c.keyID),
		EncryptionContext: encryptionContext,
	})
	if err != nil {
		return "", fmt.Errorf("kms decrypt: %w", err)
	}
	return string(out.Plaintext), nil
}

const plainPrefix = "plain:"

// PlainCipher is a pass-through TokenCipher for local development and tests.
type PlainCipher struct{}

func NewPlainCipher() *PlainCipher { return &PlainCipher{} }

func (*PlainCipher) Seal(_ context.Context, plaintext string) (string, error) {
	return plainPrefix + plaintext, nil
}

func (*PlainCipher) Open(_ context.Context, ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, plainPrefix), nil
}
