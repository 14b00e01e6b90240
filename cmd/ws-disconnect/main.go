// Package main handles the websocket $disconnect route.
package main

import (
	"context"
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
	env      config.Env
	registry fanout.Registry
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("ws-disconnect")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"CONNECTIONS_TABLE": env.ConnectionsTable,
	})

	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	app := &App{
		env:      env,
		registry: fanout.NewDynamoRegistry(awsutil.DynamoClient(cfg, endpoint), env.ConnectionsTable),
	}
	lambda.Start(app.handler)
}

// handler removes the connection record. Unknown connections are fine; the
// record may already have been pruned by a failed push.
func (a *App) handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := req.RequestContext.ConnectionID
	if err := a.registry.Delete(ctx, connectionID); err != nil {
		log.Error().Err(err).Str("connectionId", connectionID).Msg("disconnect cleanup failed")
		return httpx.Error(http.StatusInternalServerError, "disconnect failed")
	}
	return httpx.JSON(http.StatusOK, map[string]string{"message": "disconnected"})
}
