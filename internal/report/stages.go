package report

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/models"
)

// Forwarder hands a stage message to the next stage's queue.
type Forwarder interface {
	Forward(ctx context.Context, reportID string, v any) error
}

// loadForStage reads the report row fresh and decides whether the stage
// should run. Terminal rows are skipped: under at-least-once delivery a
// stage message can be redelivered after the report already finished.
func loadForStage(ctx context.Context, store Store, reportID string) (*models.Report, bool) {
	rep, err := store.Get(ctx, reportID)
	if errors.Is(err, ErrReportNotFound) {
		log.Warn().Str("report_id", reportID).Msg("report row missing, dropping stage message")
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("report_id", reportID).Msg("failed to load report")
		return nil, false
	}
	if rep.Status.Terminal() {
		log.Info().Str("report_id", reportID).Str("status", string(rep.Status)).
			Msg("report already terminal, skipping stage")
		return nil, false
	}
	return rep, true
}

// fail transitions the report to FAILED with the captured message. The
// pipeline never forwards after a failure; the row is the error surface.
func fail(ctx context.Context, store Store, reportID string, cause error) {
	log.Error().Err(cause).Str("report_id", reportID).Msg("report stage failed")
	if err := store.MarkFailed(ctx, reportID, cause.Error()); err != nil {
		log.Error().Err(err).Str("report_id", reportID).Msg("failed to record FAILED status")
	}
}
