// Package main handles the websocket $connect route.
package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/authz"
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
	logging.Setup("ws-connect")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"CONNECTIONS_TABLE": env.ConnectionsTable,
		"WS_API_ENDPOINT":   env.WebsocketEndpoint,
		"TOKEN_SECRET":      env.TokenSecret,
	})

	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	registry := fanout.NewDynamoRegistry(awsutil.DynamoClient(cfg, endpoint), env.ConnectionsTable)
	pusher := fanout.NewAPIGatewayPusher(awsutil.ManagementClient(cfg, env.WebsocketEndpoint))
	verifier := authz.NewJWTVerifier([]byte(env.TokenSecret))

	app := &App{
		env: env,
		svc: fanout.NewService(registry, pusher, verifier, env.MaxConnectionsPerUser, env.ConnectionTTL),
	}
	lambda.Start(app.handler)
}

// handler authenticates the connect request and registers the connection.
// The token arrives as a query parameter; browsers cannot set websocket
// handshake headers.
func (a *App) handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := req.RequestContext.ConnectionID
	token := req.QueryStringParameters["token"]
	if token == "" {
		return httpx.Error(http.StatusUnauthorized, "missing token")
	}

	err := a.svc.Connect(ctx, connectionID, token)
	switch {
	case errors.Is(err, authz.ErrUnauthorized):
		return httpx.Error(http.StatusUnauthorized, "invalid token")
	case errors.Is(err, fanout.ErrTooManyConnections):
		return httpx.Error(http.StatusTooManyRequests, "connection limit reached")
	case err != nil:
		log.Error().Err(err).Str("connectionId", connectionID).Msg("connect failed")
		return httpx.Error(http.StatusInternalServerError, "connect failed")
	}
	return httpx.JSON(http.StatusOK, map[string]string{"message": "connected"})
}
