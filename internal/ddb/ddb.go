// Package ddb provides shared helpers for the DynamoDB-backed stores.
package ddb

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrThrottled marks an AWS request rejected by throttling.
var ErrThrottled = errors.New("AWS request throttled")

// WrapErr wraps AWS SDK errors, identifying throttling so callers can lean on
// the queue redrive policy instead of retrying inline.
func WrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}

	var provisionedErr *types.ProvisionedThroughputExceededException
	if errors.As(err, &provisionedErr) {
		return fmt.Errorf("%s: %w: %v", msg, ErrThrottled, err)
	}

	// AWS SDK v2 doesn't always use typed errors for all services.
	errMsg := err.Error()
	if strings.Contains(errMsg, "ThrottlingException") ||
		strings.Contains(errMsg, "RequestLimitExceeded") ||
		strings.Contains(errMsg, "TooManyRequestsException") {
		return fmt.Errorf("%s: %w: %v", msg, ErrThrottled, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}

// ExpiryFrom returns the epoch-second TTL attribute value for now+retention.
func ExpiryFrom(now time.Time, retention time.Duration) int64 {
	return now.Add(retention).Unix()
}
