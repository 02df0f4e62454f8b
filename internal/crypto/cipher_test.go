package crypto

import (
	"context"
	"testing"
)

func TestPlainCipher_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewPlainCipher()

	sealed, err := c.Seal(ctx, "refresh-token-value")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if sealed != "plain:refresh-token-value" {
		t.Errorf("sealed = %q", sealed)
	}

	opened, err := c.Open(ctx, sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != "refresh-token-value" {
		t.Errorf("opened = %q", opened)
	}
}

func TestPlainCipher_OpenUnprefixed(t *testing.T) {
	// Values written before the prefix convention pass through unchanged.
	opened, err := NewPlainCipher().Open(context.Background(), "bare-value")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != "bare-value" {
		t.Errorf("opened = %q", opened)
	}
}
