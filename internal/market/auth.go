package market

import (
	"context"
	"fmt"

	"github.com/tokenhaus/marketd/internal/domain"
)

// requireAdmin rejects every caller except the administrative identity
func (e *engine) requireAdmin(caller domain.Identity) error {
	if caller != e.config.Admin {
		return domain.ErrUnauthorized
	}
	return nil
}

// requireOwner rejects callers that do not currently own the asset.
// Unknown assets surface domain.ErrNotFound from the owner lookup.
func (e *engine) requireOwner(ctx context.Context, caller domain.Identity, id domain.AssetID) error {
	owner, err := e.store.GetAssetOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to resolve asset owner: %w", err)
	}
	if caller != owner {
		return domain.ErrUnauthorized
	}
	return nil
}
