// Package main fans notifications out to connected websocket clients.
package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/awsutil"
	"github.com/kylejryan/claim-workflow-engine/internal/config"
	"github.com/kylejryan/claim-workflow-engine/internal/fanout"
	"github.com/kylejryan/claim-workflow-engine/internal/logging"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// App holds the application state, including configuration and clients.
type App struct {
	env config.Env
	svc *fanout.Service
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("notify-dispatch")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"CONNECTIONS_TABLE": env.ConnectionsTable,
		"WS_API_ENDPOINT":   env.WebsocketEndpoint,
	})

	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	registry := fanout.NewDynamoRegistry(awsutil.DynamoClient(cfg, endpoint), env.ConnectionsTable)
	pusher := fanout.NewAPIGatewayPusher(awsutil.ManagementClient(cfg, env.WebsocketEndpoint))

	// No verifier: dispatch pushes to already-authenticated connections.
	app := &App{
		env: env,
		svc: fanout.NewService(registry, pusher, nil, env.MaxConnectionsPerUser, env.ConnectionTTL),
	}
	lambda.Start(app.handler)
}

// handler dispatches each queued notification. Malformed bodies are logged
// and skipped; delivery failures to individual sockets never fail the batch.
func (a *App) handler(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		var n wire.Notification
		if err := json.Unmarshal([]byte(rec.Body), &n); err != nil {
			log.Error().Err(err).Str("message_id", rec.MessageId).Msg("malformed notification, skipping")
			continue
		}

		sent, removed, err := a.svc.Dispatch(ctx, n)
		if err != nil {
			log.Error().Err(err).Str("notification_type", n.NotificationType).Msg("dispatch failed")
			continue
		}
		log.Info().
			Str("notification_type", n.NotificationType).
			Str("batch_id", n.BatchID).
			Int("sent", sent).
			Int("stale_removed", removed).
			Msg("notification dispatched")
	}
	return nil
}
