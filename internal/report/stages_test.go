package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kylejryan/claim-workflow-engine/internal/models"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// memReportStore is an in-memory Store for stage tests.
type memReportStore struct {
	reports map[string]*models.Report
}

func newMemReportStore(reports ...*models.Report) *memReportStore {
	s := &memReportStore{reports: map[string]*models.Report{}}
	for _, r := range reports {
		s.reports[r.ID] = r
	}
	return s
}

func (s *memReportStore) Get(_ context.Context, id string) (*models.Report, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memReportStore) SetStatus(_ context.Context, id string, status models.ReportStatus) error {
	r, ok := s.reports[id]
	if !ok {
		return ErrReportNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

func (s *memReportStore) MarkCompleted(_ context.Context, id, s3Key string) error {
	r, ok := s.reports[id]
	if !ok {
		return ErrReportNotFound
	}
	now := time.Now()
	r.Status = models.ReportCompleted
	r.S3Key = &s3Key
	r.CompletedAt = &now
	r.UpdatedAt = now
	return nil
}

func (s *memReportStore) MarkFailed(_ context.Context, id, msg string) error {
	r, ok := s.reports[id]
	if !ok {
		return ErrReportNotFound
	}
	r.Status = models.ReportFailed
	r.ErrorMessage = &msg
	r.UpdatedAt = time.Now()
	return nil
}

// memForwarder records forwarded stage messages.
type memForwarder struct {
	sent []any
	err  error
}

func (f *memForwarder) Forward(_ context.Context, _ string, v any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, v)
	return nil
}

// fakeClaims serves a fixed bundle or an error.
type fakeClaims struct {
	bundle *ClaimBundle
	err    error
}

func (c *fakeClaims) Load(_ context.Context, _ string) (*ClaimBundle, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.bundle, nil
}

// fakeDownloader writes placeholder bytes, failing for listed keys.
type fakeDownloader struct {
	failKeys map[string]bool
	fetched  []string
}

func (d *fakeDownloader) Download(_ context.Context, key, destPath string) error {
	if d.failKeys[key] {
		return errors.New("download failed")
	}
	d.fetched = append(d.fetched, key)
	return os.WriteFile(destPath, []byte("data:"+key), 0o644)
}

// fakeObjects captures the uploaded archive.
type fakeObjects struct {
	uploadedKey  string
	uploadedPath string
	uploadErr    error
}

func (o *fakeObjects) Upload(_ context.Context, key, srcPath, _ string) error {
	if o.uploadErr != nil {
		return o.uploadErr
	}
	o.uploadedKey = key
	o.uploadedPath = srcPath
	return nil
}

func (o *fakeObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://example.com/%s?signed", key), nil
}

func requestedReport(id string) *models.Report {
	return &models.Report{
		ID:           id,
		UserID:       "user-1",
		ClaimID:      "claim-1",
		Status:       models.ReportRequested,
		ReportType:   "full",
		EmailAddress: "owner@example.com",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func testBundle() *ClaimBundle {
	return &ClaimBundle{
		ClaimID:     "claim-1",
		Title:       "Kitchen fire",
		HouseholdID: "house-9",
		OwnerName:   "Jordan Blake",
		Items: []wire.ItemDetail{
			{ItemID: "i1", Number: 1, Name: "Refrigerator", RoomName: "Kitchen", Quantity: 1, ReplacementCost: 1200},
			{ItemID: "i2", Number: 2, Name: "Toaster", RoomName: "Kitchen", Quantity: 1, ReplacementCost: 45.5},
			{ItemID: "i3", Number: 3, Name: "Couch", RoomName: "Living Room", Quantity: 1, ReplacementCost: 800},
			{ItemID: "i4", Number: 4, Name: "Heirloom clock", Quantity: 1, ReplacementCost: 300},
		},
		Files: []wire.FileRef{
			{FileID: "f1", S3Key: "claims/claim-1/f1.jpg", FileName: "fridge-front.jpg", ItemID: "i1"},
			{FileID: "f2", S3Key: "claims/claim-1/f2.jpg", FileName: "fridge-back.jpg", ItemID: "i1"},
			{FileID: "f3", S3Key: "claims/claim-1/f3.png", FileName: "couch.png", ItemID: "i3"},
			{FileID: "f4", S3Key: "claims/claim-1/f4.pdf", FileName: "police-report.pdf"},
		},
	}
}
