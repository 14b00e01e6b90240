package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// ErrClaimNotFound is returned when the report references a missing claim.
var ErrClaimNotFound = errors.New("claim not found")

// ClaimBundle is everything stage 1 needs from the claim data layer.
type ClaimBundle struct {
	ClaimID     string
	Title       string
	HouseholdID string
	OwnerName   string
	Items       []wire.ItemDetail
	Files       []wire.FileRef
}

// ClaimSource reads claims and their items and files. The relational claim
// schema is owned elsewhere; this is a read-only adapter over it.
type ClaimSource interface {
	Load(ctx context.Context, claimID string) (*ClaimBundle, error)
}

// PGClaimSource is the Postgres implementation of ClaimSource.
type PGClaimSource struct {
	pool *pgxpool.Pool
}

// NewPGClaimSource wraps a pgx pool.
func NewPGClaimSource(pool *pgxpool.Pool) *PGClaimSource {
	return &PGClaimSource{pool: pool}
}

// Load reads the claim header, its items (with room names), and its files.
func (s *PGClaimSource) Load(ctx context.Context, claimID string) (*ClaimBundle, error) {
	const claimQ = `
		SELECT c.id, c.title, c.household_id, u.full_name
		FROM claims c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1`

	b := &ClaimBundle{}
	err := s.pool.QueryRow(ctx, claimQ, claimID).Scan(&b.ClaimID, &b.Title, &b.HouseholdID, &b.OwnerName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrClaimNotFound, claimID)
	}
	if err != nil {
		return nil, fmt.Errorf("load claim %s: %w", claimID, err)
	}

	const itemsQ = `
		SELECT i.id, i.item_number, i.name, COALESCE(r.name, ''), i.quantity,
		       i.replacement_cost, COALESCE(i.description, '')
		FROM items i
		LEFT JOIN rooms r ON r.id = i.room_id
		WHERE i.claim_id = $1
		ORDER BY i.item_number`

	rows, err := s.pool.Query(ctx, itemsQ, claimID)
	if err != nil {
		return nil, fmt.Errorf("load items for claim %s: %w", claimID, err)
	}
	b.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (wire.ItemDetail, error) {
		var it wire.ItemDetail
		err := row.Scan(&it.ItemID, &it.Number, &it.Name, &it.RoomName, &it.Quantity,
			&it.ReplacementCost, &it.Description)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan items for claim %s: %w", claimID, err)
	}

	const filesQ = `
		SELECT f.id, f.s3_key, f.file_name, COALESCE(f.item_id::text, '')
		FROM files f
		WHERE f.claim_id = $1
		ORDER BY f.created_at`

	rows, err = s.pool.Query(ctx, filesQ, claimID)
	if err != nil {
		return nil, fmt.Errorf("load files for claim %s: %w", claimID, err)
	}
	b.Files, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (wire.FileRef, error) {
		var f wire.FileRef
		err := row.Scan(&f.FileID, &f.S3Key, &f.FileName, &f.ItemID)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan files for claim %s: %w", claimID, err)
	}

	return b, nil
}
