package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/claim-workflow-engine/internal/models"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

func TestAggregateForwardsReportData(t *testing.T) {
	store := newMemReportStore(requestedReport("rep-1"))
	organize := &memForwarder{}
	stage := NewAggregateStage(store, &fakeClaims{bundle: testBundle()}, organize)

	stage.Handle(context.Background(), wire.AggregateRequest{ReportID: "rep-1"})

	require.Len(t, organize.sent, 1)
	msg := organize.sent[0].(wire.OrganizeRequest)
	assert.Equal(t, "rep-1", msg.ReportID)
	assert.Equal(t, "owner@example.com", msg.EmailAddress)
	assert.Equal(t, "Kitchen fire", msg.ReportData.ClaimTitle)
	// Kitchen, Living Room, misc (roomless clock)
	require.Len(t, msg.ReportData.Rooms, 3)
	assert.Len(t, msg.ReportData.ClaimFiles, 4)
	assert.Equal(t, models.ReportAggregating, store.reports["rep-1"].Status)
}

func TestAggregateClaimNotFoundFailsReport(t *testing.T) {
	store := newMemReportStore(requestedReport("rep-1"))
	organize := &memForwarder{}
	stage := NewAggregateStage(store, &fakeClaims{err: ErrClaimNotFound}, organize)

	stage.Handle(context.Background(), wire.AggregateRequest{ReportID: "rep-1"})

	rep := store.reports["rep-1"]
	assert.Equal(t, models.ReportFailed, rep.Status)
	require.NotNil(t, rep.ErrorMessage)
	assert.Contains(t, *rep.ErrorMessage, "claim not found")
	assert.Empty(t, organize.sent)
}

func TestAggregateSkipsTerminalReport(t *testing.T) {
	rep := requestedReport("rep-1")
	rep.Status = models.ReportCompleted
	store := newMemReportStore(rep)
	organize := &memForwarder{}
	stage := NewAggregateStage(store, &fakeClaims{bundle: testBundle()}, organize)

	stage.Handle(context.Background(), wire.AggregateRequest{ReportID: "rep-1"})

	assert.Empty(t, organize.sent)
	assert.Equal(t, models.ReportCompleted, store.reports["rep-1"].Status)
}

func TestAggregateMissingRowDropsMessage(t *testing.T) {
	store := newMemReportStore()
	organize := &memForwarder{}
	stage := NewAggregateStage(store, &fakeClaims{bundle: testBundle()}, organize)

	stage.Handle(context.Background(), wire.AggregateRequest{ReportID: "ghost"})

	assert.Empty(t, organize.sent)
}

func TestBuildReportDataGroupsByRoom(t *testing.T) {
	data := BuildReportData(testBundle())

	require.Len(t, data.Rooms, 3)
	assert.Equal(t, "Kitchen", data.Rooms[0].RoomName)
	assert.Len(t, data.Rooms[0].Items, 2)
	assert.Equal(t, "Living Room", data.Rooms[1].RoomName)
	assert.Equal(t, miscRoom, data.Rooms[2].RoomName)
	assert.Equal(t, "Heirloom clock", data.Rooms[2].Items[0].Name)
	assert.Len(t, data.Items(), 4)
}
