package report

import (
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// miscRoom collects items and files with no resolvable room association.
const miscRoom = "misc"

// BuildReportData groups a claim bundle's items by room, preserving item
// order within each room and first-seen room order across the claim.
// Roomless items land under the misc group.
func BuildReportData(b *ClaimBundle) wire.ReportData {
	data := wire.ReportData{
		ClaimID:       b.ClaimID,
		ClaimTitle:    b.Title,
		HouseholdID:   b.HouseholdID,
		RecipientName: b.OwnerName,
		ClaimFiles:    b.Files,
	}

	index := map[string]int{}
	for _, item := range b.Items {
		room := item.RoomName
		if room == "" {
			room = miscRoom
		}
		i, ok := index[room]
		if !ok {
			data.Rooms = append(data.Rooms, wire.RoomGroup{RoomName: room})
			i = len(data.Rooms) - 1
			index[room] = i
		}
		data.Rooms[i].Items = append(data.Rooms[i].Items, item)
	}
	return data
}
