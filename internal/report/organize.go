package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/models"
	"github.com/kylejryan/claim-workflow-engine/internal/validate"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// Downloader fetches one stored object into a local file.
type Downloader interface {
	Download(ctx context.Context, key, destPath string) error
}

// OrganizeStage is stage 2: it materializes the staging directory tree, one
// subdirectory per room, and downloads each claim file into the directory of
// its associated item's room.
type OrganizeStage struct {
	store   Store
	objects Downloader
	pack    Forwarder
	workDir string
}

// NewOrganizeStage wires stage 2. workDir is the scratch root for staging
// trees (the platform scratch dir in production).
func NewOrganizeStage(store Store, objects Downloader, pack Forwarder, workDir string) *OrganizeStage {
	return &OrganizeStage{store: store, objects: objects, pack: pack, workDir: workDir}
}

// Handle processes one organize request. Per-file download failures are
// logged and skipped; only structural failures (staging tree, forwarding)
// fail the report.
func (s *OrganizeStage) Handle(ctx context.Context, req wire.OrganizeRequest) {
	rep, ok := loadForStage(ctx, s.store, req.ReportID)
	if !ok {
		return
	}

	if err := s.store.SetStatus(ctx, rep.ID, models.ReportOrganizing); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("set status: %w", err))
		return
	}

	reportDir := filepath.Join(s.workDir, "report-"+rep.ID)
	if err := s.stageFiles(ctx, reportDir, req.ReportData); err != nil {
		fail(ctx, s.store, rep.ID, err)
		return
	}

	msg := wire.PackageRequest{
		ReportID:     rep.ID,
		ReportDir:    reportDir,
		ReportData:   req.ReportData,
		EmailAddress: req.EmailAddress,
	}
	if err := s.pack.Forward(ctx, rep.ID, msg); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("forward to package: %w", err))
		return
	}

	log.Info().Str("report_id", rep.ID).Str("report_dir", reportDir).Msg("report files organized")
}

// stageFiles builds the directory tree and downloads every resolvable file.
func (s *OrganizeStage) stageFiles(ctx context.Context, reportDir string, data wire.ReportData) error {
	if err := os.MkdirAll(filepath.Join(reportDir, miscRoom), 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	for _, room := range data.Rooms {
		if err := os.MkdirAll(filepath.Join(reportDir, validate.FileName(room.RoomName)), 0o755); err != nil {
			return fmt.Errorf("create room dir %s: %w", room.RoomName, err)
		}
	}

	items := map[string]wire.ItemDetail{}
	for _, item := range data.Items() {
		items[item.ItemID] = item
	}

	// Per-item file totals drive the "(n of total)" suffix.
	totals := map[string]int{}
	for _, f := range data.ClaimFiles {
		if f.ItemID != "" {
			totals[f.ItemID]++
		}
	}

	seen := map[string]int{}
	for _, f := range data.ClaimFiles {
		dest := s.destPath(reportDir, f, items, totals, seen)
		if err := s.objects.Download(ctx, f.S3Key, dest); err != nil {
			log.Warn().Err(err).Str("s3_key", f.S3Key).Str("file_id", f.FileID).
				Msg("file download failed, skipping")
			continue
		}
	}
	return nil
}

// destPath resolves the staging path for one file. Files with no resolvable
// item or room go to the misc subdirectory under their original name.
func (s *OrganizeStage) destPath(reportDir string, f wire.FileRef, items map[string]wire.ItemDetail, totals, seen map[string]int) string {
	item, ok := items[f.ItemID]
	if f.ItemID == "" || !ok {
		return filepath.Join(reportDir, miscRoom, validate.FileName(f.FileName))
	}

	room := item.RoomName
	if room == "" {
		room = miscRoom
	}
	seen[f.ItemID]++
	name := fmt.Sprintf("%d - %s (%d of %d).%s",
		item.Number,
		validate.FileName(item.Name),
		seen[f.ItemID],
		totals[f.ItemID],
		validate.Ext(f.FileName),
	)
	return filepath.Join(reportDir, validate.FileName(room), name)
}
