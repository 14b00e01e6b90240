// Package main runs the final report stage: email the retrieval link.
package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/awsutil"
	"github.com/kylejryan/claim-workflow-engine/internal/config"
	"github.com/kylejryan/claim-workflow-engine/internal/logging"
	"github.com/kylejryan/claim-workflow-engine/internal/mailer"
	"github.com/kylejryan/claim-workflow-engine/internal/report"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// App holds the application state, including configuration and clients.
type App struct {
	env   config.Env
	stage *report.NotifyStage
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("report-notify")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"SENDER_ADDRESS": env.SenderAddress,
	})

	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	app := &App{
		env:   env,
		stage: report.NewNotifyStage(mailer.New(awsutil.SESClient(cfg, endpoint), env.SenderAddress)),
	}
	lambda.Start(app.handler)
}

// handler decodes notify requests and sends the completion email for each.
func (a *App) handler(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		var req wire.NotifyRequest
		if err := json.Unmarshal([]byte(rec.Body), &req); err != nil {
			log.Error().Err(err).Str("message_id", rec.MessageId).Msg("malformed notify request, skipping")
			continue
		}
		a.stage.Handle(ctx, req)
	}
	return nil
}
