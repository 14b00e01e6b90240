package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/models"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// AggregateStage is stage 1: it loads the claim behind the report and builds
// the structured payload the rest of the pipeline works from.
type AggregateStage struct {
	store    Store
	claims   ClaimSource
	organize Forwarder
}

// NewAggregateStage wires stage 1.
func NewAggregateStage(store Store, claims ClaimSource, organize Forwarder) *AggregateStage {
	return &AggregateStage{store: store, claims: claims, organize: organize}
}

// Handle processes one aggregate request. Any failure transitions the report
// to FAILED and nothing is forwarded.
func (s *AggregateStage) Handle(ctx context.Context, req wire.AggregateRequest) {
	rep, ok := loadForStage(ctx, s.store, req.ReportID)
	if !ok {
		return
	}

	if err := s.store.SetStatus(ctx, rep.ID, models.ReportAggregating); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("set status: %w", err))
		return
	}

	bundle, err := s.claims.Load(ctx, rep.ClaimID)
	if err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("load claim: %w", err))
		return
	}

	msg := wire.OrganizeRequest{
		ReportID:     rep.ID,
		ReportData:   BuildReportData(bundle),
		EmailAddress: rep.EmailAddress,
	}
	if err := s.organize.Forward(ctx, rep.ID, msg); err != nil {
		fail(ctx, s.store, rep.ID, fmt.Errorf("forward to organize: %w", err))
		return
	}

	log.Info().Str("report_id", rep.ID).Str("claim_id", rep.ClaimID).
		Int("rooms", len(msg.ReportData.Rooms)).
		Int("files", len(msg.ReportData.ClaimFiles)).
		Msg("report data aggregated")
}
