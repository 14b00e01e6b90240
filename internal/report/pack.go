package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/models"
	"github.com/kylejryan/claim-workflow-engine/internal/storage"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// ObjectStore uploads the finished archive and signs its retrieval URL.
type ObjectStore interface {
	Upload(ctx context.Context, key, srcPath, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PackageStage is stage 3: it writes the CSV summary, compresses the staging
// tree, uploads the archive, records COMPLETED, and hands delivery to the
// notify worker.
type PackageStage struct {
	store   Store
	objects ObjectStore
	notify  Forwarder
	urlTTL  time.Duration
}

// NewPackageStage wires stage 3. urlTTL bounds the presigned retrieval URL.
func NewPackageStage(store Store, objects ObjectStore, notify Forwarder, urlTTL time.Duration) *PackageStage {
	return &PackageStage{store: store, objects: objects, notify: notify, urlTTL: urlTTL}
}

// Handle processes one package request. Failures before COMPLETED transition
// the report to FAILED and leave no partial artifact referenced from the row.
// The notify forward and staging cleanup are best-effort: the uploaded
// archive is the success condition.
func (s *PackageStage) Handle(ctx context.Context, req wire.PackageRequest) {
	rep, ok := loadForStage(ctx, s.store, req.ReportID)
	if !ok {
		return
	}

	if err := s.store.SetStatus(ctx, rep.ID, models.ReportDelivering); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("set status: %w", err))
		return
	}

	if err := WriteSummaryCSV(filepath.Join(req.ReportDir, "summary.csv"), req.ReportData); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("write summary: %w", err))
		return
	}

	archive := req.ReportDir + ".zip"
	if err := zipDir(req.ReportDir, archive); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("compress report: %w", err))
		return
	}

	key := storage.BuildReportKey(req.ReportData.HouseholdID, req.ReportData.ClaimID, ulid.Make().String())
	if err := s.objects.Upload(ctx, key, archive, "application/zip"); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("upload archive: %w", err))
		return
	}

	url, err := s.objects.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("presign archive: %w", err))
		return
	}

	if err := s.store.MarkCompleted(ctx, rep.ID, key); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("record completion: %w", err))
		return
	}

	msg := wire.NotifyRequest{
		ReportID:      rep.ID,
		PresignedURL:  url,
		EmailAddress:  req.EmailAddress,
		RecipientName: req.ReportData.RecipientName,
		ClaimTitle:    req.ReportData.ClaimTitle,
	}
	if err := s.notify.Forward(ctx, rep.ID, msg); err != nil {
		log.Warn().Err(err).Str("report_id", rep.ID).Msg("failed to forward notify message")
	}

	s.cleanup(req.ReportDir, archive)

	log.Info().Str("report_id", rep.ID).Str("s3_key", key).Msg("report packaged and delivered")
}

// cleanup removes the staging tree and local archive. Failures are logged only.
func (s *PackageStage) cleanup(reportDir, archive string) {
	if err := os.RemoveAll(reportDir); err != nil {
		log.Warn().Err(err).Str("report_dir", reportDir).Msg("staging cleanup failed")
	}
	if err := os.Remove(archive); err != nil {
		log.Warn().Err(err).Str("archive", archive).Msg("archive cleanup failed")
	}
}

// WriteSummaryCSV writes the tabular item summary: a header row plus one row
// per item across all rooms.
func WriteSummaryCSV(path string, data wire.ReportData) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Item #", "Name", "Room", "Quantity", "Replacement Cost", "Description"}); err != nil {
		return err
	}
	for _, item := range data.Items() {
		row := []string{
			strconv.Itoa(item.Number),
			item.Name,
			item.RoomName,
			strconv.Itoa(item.Quantity),
			strconv.FormatFloat(item.ReplacementCost, 'f', 2, 64),
			item.Description,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// zipDir compresses the directory tree rooted at srcDir into destPath,
// storing entries relative to srcDir.
func zipDir(srcDir, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		entry, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
