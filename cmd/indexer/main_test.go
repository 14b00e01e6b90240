package main

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaimKey(t *testing.T) {
	claimID, fileID, err := parseClaimKey("claims/claim-1/f2.jpg")
	require.NoError(t, err)
	assert.Equal(t, "claim-1", claimID)
	assert.Equal(t, "f2", fileID)

	_, _, err = parseClaimKey("user/u1/c1.txt")
	assert.Error(t, err)
	_, _, err = parseClaimKey("claims/claim-1/nested/f.jpg")
	assert.Error(t, err)
}

func TestReportArtifactsAreNotReingested(t *testing.T) {
	// The guard must fire before any S3 call; the nil client proves it.
	app := &App{}
	err := app.processS3Record(context.Background(), events.S3EventRecord{
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: "claim-bucket"},
			Object: events.S3Object{Key: "reports/house-9/claim-1/abc.zip"},
		},
	})
	require.NoError(t, err)
}
