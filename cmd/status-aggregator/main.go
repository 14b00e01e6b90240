// Package main consumes item lifecycle events and maintains batch status.
package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/awsutil"
	"github.com/kylejryan/claim-workflow-engine/internal/batch"
	"github.com/kylejryan/claim-workflow-engine/internal/config"
	"github.com/kylejryan/claim-workflow-engine/internal/logging"
	"github.com/kylejryan/claim-workflow-engine/internal/queue"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// App holds the application state, including configuration and AWS clients.
type App struct {
	env config.Env
	agg *batch.Aggregator
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("status-aggregator")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"STATUS_TABLE":           env.StatusTable,
		"NOTIFICATION_QUEUE_URL": env.NotificationQueueURL,
	})

	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	store := batch.NewDynamoStore(awsutil.DynamoClient(cfg, endpoint), env.StatusTable)
	notifier := &queue.NotificationPublisher{
		Publisher: queue.NewPublisher(awsutil.SQSClient(cfg, endpoint)),
		QueueURL:  env.NotificationQueueURL,
	}

	app := &App{
		env: env,
		agg: batch.NewAggregator(store, notifier, env.StatusTTL),
	}
	lambda.Start(app.handler)
}

// handler decodes lifecycle events from the SQS delivery and applies them.
// Malformed bodies are logged and skipped; they would never parse on retry.
func (a *App) handler(ctx context.Context, ev events.SQSEvent) error {
	lifecycle := make([]wire.LifecycleEvent, 0, len(ev.Records))
	for _, rec := range ev.Records {
		var e wire.LifecycleEvent
		if err := json.Unmarshal([]byte(rec.Body), &e); err != nil {
			log.Error().Err(err).Str("message_id", rec.MessageId).Msg("malformed event body, skipping")
			continue
		}
		lifecycle = append(lifecycle, e)
	}

	res := a.agg.ProcessEvents(ctx, lifecycle)
	log.Info().Int("processed", res.Processed).Int("failed", res.Failed).Msg("delivery handled")
	return nil
}
