package messages

import (
	"time"

	"github.com/google/uuid"
)

const DefaultLuggageReportedTopic = "luggage.reported"

// LuggageReported is published once per new luggage report; key is the luggage id.
type LuggageReported struct {
	LuggageID  uuid.UUID `json:"luggage_id"`
	OwnerID    string    `json:"owner_id"`
	Status     string    `json:"status"`
	ImageURL   string    `json:"image_url"`
	ReportedAt time.Time `json:"reported_at"`
}
