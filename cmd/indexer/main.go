// Package main turns S3 object-created events into item lifecycle events.
package main

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/awsutil"
	"github.com/kylejryan/claim-workflow-engine/internal/config"
	"github.com/kylejryan/claim-workflow-engine/internal/logging"
	"github.com/kylejryan/claim-workflow-engine/internal/queue"
	"github.com/kylejryan/claim-workflow-engine/internal/storage"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// App holds the application state, including configuration and AWS clients.
type App struct {
	env config.Env
	s3c *s3.Client
	pub *queue.Publisher
}

// main initializes the app and starts the Lambda handler.
func main() {
	logging.Setup("indexer")
	env := config.MustLoad()
	config.MustHave(map[string]string{
		"EVENT_QUEUE_URL": env.EventQueueURL,
	})

	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	app := &App{
		env: env,
		s3c: awsutil.S3Client(cfg, endpoint),
		pub: queue.NewPublisher(awsutil.SQSClient(cfg, endpoint)),
	}
	lambda.Start(app.handler)
}

// handler emits one file_uploaded event per created object. A bad record is
// logged and skipped; the rest of the delivery still goes through.
func (a *App) handler(ctx context.Context, ev events.S3Event) error {
	for _, rec := range ev.Records {
		if err := a.processS3Record(ctx, rec); err != nil {
			log.Error().Err(err).Str("key", rec.S3.Object.Key).Msg("record processing failed")
		}
	}
	return nil
}

// processS3Record reads the object's metadata and publishes the upload event.
func (a *App) processS3Record(ctx context.Context, record events.S3EventRecord) error {
	bucket := record.S3.Bucket.Name
	key, _ := url.QueryUnescape(record.S3.Object.Key)

	// Packaged report archives land in the same bucket; never re-ingest them.
	if _, _, ok := storage.ParseReportKey(key); ok {
		log.Debug().Str("key", key).Msg("report artifact, skipping")
		return nil
	}

	meta, err := a.objectMetadata(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("head %s: %w", key, err)
	}

	// Prefer metadata-sourced ids; fall back to path parsing.
	claimID := strings.TrimSpace(meta["claim_id"])
	fileID := strings.TrimSpace(meta["file_id"])
	if claimID == "" || fileID == "" {
		c2, f2, perr := parseClaimKey(key)
		if perr != nil {
			return fmt.Errorf("bad key %q: %w", key, perr)
		}
		if claimID == "" {
			claimID = c2
		}
		if fileID == "" {
			fileID = f2
		}
	}

	// An upload batch defaults to one batch per claim when the uploader
	// didn't tag its objects with a batch id.
	batchID := strings.TrimSpace(meta["batch_id"])
	if batchID == "" {
		batchID = claimID
	}

	event := wire.LifecycleEvent{
		EventType: "file_uploaded",
		BatchID:   batchID,
		ItemID:    fileID,
		UserID:    strings.TrimSpace(meta["user_id"]),
		ClaimID:   claimID,
		Timestamp: time.Now().UnixMilli(),
		Data: map[string]any{
			"s3Key":    key,
			"fileName": path.Base(key),
			"size":     record.S3.Object.Size,
		},
	}
	if err := a.pub.SendJSON(ctx, a.env.EventQueueURL, event, map[string]string{
		"eventType": event.EventType,
		"batchId":   event.BatchID,
	}); err != nil {
		return fmt.Errorf("publish event for %s: %w", key, err)
	}

	log.Info().Str("batch_id", batchID).Str("item_id", fileID).Str("key", key).Msg("upload event published")
	return nil
}

// parseClaimKey extracts claim and file ids from a "claims/{claimId}/{file}" key.
func parseClaimKey(key string) (claimID, fileID string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != "claims" {
		return "", "", fmt.Errorf("unexpected key shape")
	}
	base := parts[2]
	return parts[1], strings.TrimSuffix(base, path.Ext(base)), nil
}

// objectMetadata fetches the object's user metadata with lowercased keys.
func (a *App) objectMetadata(ctx context.Context, bucket, key string) (map[string]string, error) {
	ho, err := a.s3c.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string, len(ho.Metadata))
	for k, v := range ho.Metadata {
		meta[strings.ToLower(k)] = v
	}
	return meta, nil
}
