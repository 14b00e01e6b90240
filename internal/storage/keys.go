package storage

import (
	"fmt"
	"strings"
)

// BuildReportKey constructs the archive key for a household's claim report:
// reports/{householdId}/{claimId}/{name}.zip
func BuildReportKey(householdID, claimID, name string) string {
	return fmt.Sprintf("reports/%s/%s/%s.zip", householdID, claimID, name)
}

// ParseReportKey extracts the household and claim ids from an archive key.
func ParseReportKey(key string) (householdID, claimID string, ok bool) {
	if !strings.HasSuffix(key, ".zip") {
		return "", "", false
	}
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "reports" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
