package report

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// Mailer sends one transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// NotifyStage is stage 4: it emails the retrieval link. Email is best-effort;
// a send failure never reverts the report's COMPLETED status.
type NotifyStage struct {
	mailer Mailer
}

// NewNotifyStage wires stage 4.
func NewNotifyStage(mailer Mailer) *NotifyStage {
	return &NotifyStage{mailer: mailer}
}

// Handle sends the report-ready email for one notify request.
func (s *NotifyStage) Handle(ctx context.Context, req wire.NotifyRequest) {
	name := req.RecipientName
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Your report for %q is ready", req.ClaimTitle)
	text := fmt.Sprintf(
		"Hi %s,\n\nYour report for %q is ready. Download it here (link expires in 7 days):\n\n%s\n",
		name, req.ClaimTitle, req.PresignedURL,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your report for <strong>%s</strong> is ready.</p><p><a href="%s">Download report</a> (link expires in 7 days).</p>`,
		html.EscapeString(name), html.EscapeString(req.ClaimTitle), html.EscapeString(req.PresignedURL),
	)

	if err := s.mailer.Send(ctx, req.EmailAddress, subject, htmlBody, text); err != nil {
		log.Warn().Err(err).Str("report_id", req.ReportID).Str("email", req.EmailAddress).
			Msg("report email failed, archive delivery stands")
		return
	}
	log.Info().Str("report_id", req.ReportID).Str("email", req.EmailAddress).Msg("report email sent")
}
