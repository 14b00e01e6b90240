// Package main handles the websocket $default route (client messages).
package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/awsutil"
	"github.com/kylejryan/claim-workflow-engine/internal/config"
	"github.com/kylejryan/claim-workflow-engine/internal/fanout"
	"github.com/kylejryan/claim-workflow-engine/internal/httpx"
	"github.com/kylejryan/claim-workflow-engine/internal/logging"
)

// App holds the application state, including configuration and clients.
type App struct {
	env config.Env
	svc *fanout.Service
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("ws-default")
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

	// No verifier: authentication happens on $connect, not per message.
	app := &App{
		env: env,
		svc: fanout.NewService(registry, pusher, nil, env.MaxConnectionsPerUser, env.ConnectionTTL),
	}
	lambda.Start(app.handler)
}

// handler routes one inbound frame to the fan-out service.
func (a *App) handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := req.RequestContext.ConnectionID
	if err := a.svc.HandleMessage(ctx, connectionID, []byte(req.Body)); err != nil {
		if errors.Is(err, fanout.ErrGone) {
			return httpx.Error(http.StatusGone, "connection gone")
		}
		log.Error().Err(err).Str("connectionId", connectionID).Msg("message handling failed")
		return httpx.Error(http.StatusInternalServerError, "message handling failed")
	}
	return httpx.JSON(http.StatusOK, map[string]string{"message": "ok"})
}
