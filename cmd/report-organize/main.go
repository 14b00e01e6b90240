// Package main runs the second report stage: stage files into a local tree.
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
	stage *report.OrganizeStage
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("report-organize")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"DATABASE_URL":      env.DatabaseURL,
		"S3_BUCKET":         env.Bucket,
		"PACKAGE_QUEUE_URL": env.PackageQueueURL,
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
	pack := &queue.StagePublisher{
		Publisher: queue.NewPublisher(awsutil.SQSClient(cfg, endpoint)),
		QueueURL:  env.PackageQueueURL,
	}

	app := &App{
		env:   env,
		stage: report.NewOrganizeStage(report.NewPGStore(pool), objects, pack, env.WorkDir),
	}
	lambda.Start(app.handler)
}

// handler decodes organize requests and runs the stage for each.
func (a *App) handler(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		var req wire.OrganizeRequest
		if err := json.Unmarshal([]byte(rec.Body), &req); err != nil {
			log.Error().Err(err).Str("message_id", rec.MessageId).Msg("malformed organize request, skipping")
			continue
		}
		a.stage.Handle(ctx, req)
	}
	return nil
}
