// Package main runs the third report stage: archive, upload, and sign.
package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/awsutil"
	"github.com/kylejryan/claim-workflow-engine/internal/config"
	"github.com/kylejryan/claim-workflow-engine/internal/logging"
	"github.com/kylejryan/claim-workflow-engine/internal/queue"
	"github.com/kylejryan/claim-workflow-engine/internal/report"
	"github.com/kylejryan/claim-workflow-engine/internal/storage"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// App holds the application state, including configuration and clients.
type App struct {
	env   config.Env
	stage *report.PackageStage
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("report-package")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"DATABASE_URL":     env.DatabaseURL,
		"S3_BUCKET":        env.Bucket,
		"NOTIFY_QUEUE_URL": env.NotifyQueueURL,
	})

	ctx := context.Background()
	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}
	pool, err := pgxpool.New(ctx, env.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database pool")
	}

	objects := storage.New(awsutil.S3Client(cfg, endpoint), env.Bucket)
	notify := &queue.StagePublisher{
		Publisher: queue.NewPublisher(awsutil.SQSClient(cfg, endpoint)),
		QueueURL:  env.NotifyQueueURL,
	}

	app := &App{
		env:   env,
		stage: report.NewPackageStage(report.NewPGStore(pool), objects, notify, env.ReportURLTTL),
	}
	lambda.Start(app.handler)
}

// handler decodes package requests and runs the stage for each.
func (a *App) handler(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		var req wire.PackageRequest
		if err := json.Unmarshal([]byte(rec.Body), &req); err != nil {
			log.Error().Err(err).Str("message_id", rec.MessageId).Msg("malformed package request, skipping")
			continue
		}
		a.stage.Handle(ctx, req)
	}
	return nil
}
