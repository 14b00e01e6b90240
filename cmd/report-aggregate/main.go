// Package main runs the first report stage: collect claim data.
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
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// App holds the application state, including configuration and clients.
type App struct {
	env   config.Env
	stage *report.AggregateStage
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("report-aggregate")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"DATABASE_URL":       env.DatabaseURL,
		"ORGANIZE_QUEUE_URL": env.OrganizeQueueURL,
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

	organize := &queue.StagePublisher{
		Publisher: queue.NewPublisher(awsutil.SQSClient(cfg, endpoint)),
		QueueURL:  env.OrganizeQueueURL,
	}

	app := &App{
		env:   env,
		stage: report.NewAggregateStage(report.NewPGStore(pool), report.NewPGClaimSource(pool), organize),
	}
	lambda.Start(app.handler)
}

// handler decodes aggregate requests and runs the stage for each.
func (a *App) handler(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		var req wire.AggregateRequest
		if err := json.Unmarshal([]byte(rec.Body), &req); err != nil {
			log.Error().Err(err).Str("message_id", rec.MessageId).Msg("malformed aggregate request, skipping")
			continue
		}
		a.stage.Handle(ctx, req)
	}
	return nil
}
