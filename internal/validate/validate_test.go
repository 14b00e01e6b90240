package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

func TestLifecycleEventRequiredFields(t *testing.T) {
	valid := wire.LifecycleEvent{EventType: "file_uploaded", BatchID: "b1", ItemID: "i1"}
	assert.NoError(t, LifecycleEvent(valid))

	cases := map[string]wire.LifecycleEvent{
		"missing batchId":    {EventType: "file_uploaded", ItemID: "i1"},
		"missing itemId":     {EventType: "file_uploaded", BatchID: "b1"},
		"missing eventType":  {BatchID: "b1", ItemID: "i1"},
		"whitespace batchId": {EventType: "file_uploaded", BatchID: "  ", ItemID: "i1"},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, LifecycleEvent(ev))
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Living Room", FileName("Living Room"))
	assert.Equal(t, "a_b_c.jpg", FileName("a/b:c.jpg"))
	assert.Equal(t, "receipt", FileName("  receipt.  "))
	assert.Equal(t, "item", FileName("///"))
	assert.Equal(t, "item", FileName(""))
}

func TestExt(t *testing.T) {
	assert.Equal(t, "jpg", Ext("photo.JPG"))
	assert.Equal(t, "pdf", Ext("dir/report.pdf"))
	assert.Equal(t, "bin", Ext("noextension"))
}
