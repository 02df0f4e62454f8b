package federation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonshakerlabs/taxdrive/internal/remote/memory"
)

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name string
		base string
		ext  string
	}{
		{"receipt.pdf", "receipt", ".pdf"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"noextension", "noextension", ""},
		{".gitignore", ".gitignore", ""},
		{"trailing.", "trailing", "."},
	}
	for _, tt := range tests {
		base, ext := splitExt(tt.name)
		assert.Equal(t, tt.base, base, tt.name)
		assert.Equal(t, tt.ext, ext, tt.name)
	}
}

func TestUniqueName_NoCollision(t *testing.T) {
	ctx := context.Background()
	drv := memory.New("alice@x.com")

	name, err := uniqueName(ctx, drv, "root", "INVOICE-receipt.pdf")
	require.NoError(t, err)
	assert.Equal(t, "INVOICE-receipt.pdf", name)
}

func TestUniqueName_SuffixBeforeExtension(t *testing.T) {
	ctx := context.Background()
	drv := memory.New("alice@x.com")
	_, err := drv.CreateFile(ctx, "INVOICE-receipt.pdf", "application/pdf", nil, "root")
	require.NoError(t, err)

	name, err := uniqueName(ctx, drv, "root", "INVOICE-receipt.pdf")
	require.NoError(t, err)
	assert.Equal(t, "INVOICE-receipt_1.pdf", name)
}

func TestUniqueName_TimestampPastProbeCap(t *testing.T) {
	ctx := context.Background()
	drv := memory.New("alice@x.com")
	_, err := drv.CreateFile(ctx, "doc.pdf", "application/pdf", nil, "root")
	require.NoError(t, err)
	for i := 1; i <= maxNameProbes; i++ {
		_, err := drv.CreateFile(ctx, fmt.Sprintf("doc_%d.pdf", i), "application/pdf", nil, "root")
		require.NoError(t, err)
	}

	name, err := uniqueName(ctx, drv, "root", "doc.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "doc_"), name)
	assert.True(t, strings.HasSuffix(name, ".pdf"), name)

	id, err := drv.FindFile(ctx, name, "root")
	require.NoError(t, err)
	assert.Empty(t, id, "fallback name must not collide")
}
