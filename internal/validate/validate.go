// Package validate provides field checks for inbound messages and file names.
package validate

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

var unsafeRx = regexp.MustCompile(`[^a-zA-Z0-9 ._\-]`)

// LifecycleEvent checks the required fields of an inbound event. A failing
// event is counted and skipped; it never aborts the rest of the delivery.
func LifecycleEvent(ev wire.LifecycleEvent) error {
	if strings.TrimSpace(ev.BatchID) == "" {
		return errors.New("missing batchId")
	}
	if strings.TrimSpace(ev.ItemID) == "" {
		return errors.New("missing itemId")
	}
	if strings.TrimSpace(ev.EventType) == "" {
		return errors.New("missing eventType")
	}
	return nil
}

// FileName sanitizes a name for use inside the report staging tree. Path
// separators and shell-unfriendly characters are replaced; an empty result
// falls back to "item".
func FileName(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeRx.ReplaceAllString(s, "_")
	s = strings.Trim(s, ". ")
	if s == "" {
		return "item"
	}
	return s
}

// Ext returns the lowercased extension of name without the dot, defaulting
// to "bin" when the name has none.
func Ext(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
