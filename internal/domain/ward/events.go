package ward

import "github.com/GreycodeDev/hospital-management-sub000/internal/platform/events"

// BedEvents builds the bed-board notifications for a status change: one on
// the hospital-wide topic and one on the bed's ward topic.
func BedEvents(eventType string, bed *Bed) []events.Event {
	data := map[string]interface{}{
		"bed_id":     bed.ID,
		"bed_number": bed.BedNumber,
		"ward_id":    bed.WardID,
		"status":     bed.Status,
	}
	id := bed.ID.String()
	return []events.Event{
		events.New(eventType, events.TopicBeds, id, data),
		events.New(eventType, events.WardTopic(bed.WardID.String()), id, data),
	}
}
