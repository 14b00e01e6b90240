package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReportKey(t *testing.T) {
	key := BuildReportKey("house-9", "claim-1", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.Equal(t, "reports/house-9/claim-1/01ARZ3NDEKTSV4RRFFQ69G5FAV.zip", key)
}

func TestParseReportKey(t *testing.T) {
	house, claim, ok := ParseReportKey("reports/house-9/claim-1/abc.zip")
	assert.True(t, ok)
	assert.Equal(t, "house-9", house)
	assert.Equal(t, "claim-1", claim)

	_, _, ok = ParseReportKey("claims/claim-1/file.jpg")
	assert.False(t, ok)
	_, _, ok = ParseReportKey("reports/house-9/claim-1/abc.csv")
	assert.False(t, ok)
}
