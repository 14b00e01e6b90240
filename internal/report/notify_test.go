package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

type fakeMailer struct {
	to, subject, html, text string
	err                     error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, htmlBody, textBody string) error {
	if m.err != nil {
		return m.err
	}
	m.to, m.subject, m.html, m.text = to, subject, htmlBody, textBody
	return nil
}

func TestNotifySendsRetrievalLink(t *testing.T) {
	mailer := &fakeMailer{}
	stage := NewNotifyStage(mailer)

	stage.Handle(context.Background(), wire.NotifyRequest{
		ReportID:      "rep-1",
		PresignedURL:  "https://example.com/reports/x.zip?signed",
		EmailAddress:  "owner@example.com",
		RecipientName: "Jordan Blake",
		ClaimTitle:    "Kitchen fire",
	})

	assert.Equal(t, "owner@example.com", mailer.to)
	assert.Contains(t, mailer.subject, "Kitchen fire")
	require.Contains(t, mailer.html, "https://example.com/reports/x.zip?signed")
	assert.Contains(t, mailer.text, "Jordan Blake")
}

func TestNotifyEscapesMarkupInHTMLBody(t *testing.T) {
	mailer := &fakeMailer{}
	stage := NewNotifyStage(mailer)

	stage.Handle(context.Background(), wire.NotifyRequest{
		ReportID:      "rep-1",
		PresignedURL:  "https://example.com/x.zip?a=1&b=2",
		EmailAddress:  "owner@example.com",
		RecipientName: "Jordan <Blake>",
		ClaimTitle:    `Kitchen <fire> & "smoke"`,
	})

	assert.NotContains(t, mailer.html, "<fire>")
	assert.Contains(t, mailer.html, "Kitchen &lt;fire&gt; &amp; &#34;smoke&#34;")
	assert.Contains(t, mailer.html, "Jordan &lt;Blake&gt;")
	assert.Contains(t, mailer.html, "https://example.com/x.zip?a=1&amp;b=2")
	// Plain-text body stays unescaped.
	assert.Contains(t, mailer.text, `Kitchen <fire> & "smoke"`)
}

func TestNotifySendFailureIsBestEffort(t *testing.T) {
	stage := NewNotifyStage(&fakeMailer{err: assert.AnError})

	// Must not panic or propagate; the report stays COMPLETED.
	stage.Handle(context.Background(), wire.NotifyRequest{
		ReportID:     "rep-1",
		EmailAddress: "owner@example.com",
	})
}
