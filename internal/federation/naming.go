package federation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/moonshakerlabs/taxdrive/internal/remote"
)

// maxNameProbes caps sequential collision probing. Past the cap a
// high-resolution timestamp guarantees uniqueness without unbounded looping.
const maxNameProbes = 100

// splitExt splits "receipt.pdf" into ("receipt", ".pdf"). Dotfiles like
// ".gitignore" are treated as extension-less.
func splitExt(name string) (base, ext string) {
	ext = filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// uniqueName returns desired if no file with that name exists in the target
// folder, otherwise probes "<base>_1<ext>", "<base>_2<ext>", … until a free
// name is found.
func uniqueName(ctx context.Context, drv remote.Drive, parentID, desired string) (string, error) {
	id, err := drv.FindFile(ctx, desired, parentID)
	if err != nil {
		return "", fmt.Errorf("name collision check failed: %w", err)
	}
	if id == "" {
		return desired, nil
	}

	base, ext := splitExt(desired)
	for i := 1; i <= maxNameProbes; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		id, err := drv.FindFile(ctx, candidate, parentID)
		if err != nil {
			return "", fmt.Errorf("name collision check failed: %w", err)
		}
		if id == "" {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext), nil
}
