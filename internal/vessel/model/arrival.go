package model

import "time"

// ArrivalKind distinguishes the three port-authority feeds.
type ArrivalKind string

const (
	ArrivalDue      ArrivalKind = "due"
	ArrivalArrived  ArrivalKind = "arrived"
	ArrivalDeparted ArrivalKind = "departed"
)

// Arrival is one entry of the port-authority feed. IMO is whatever the
// vessel declared and may be empty, "0", or wrong.
type Arrival struct {
	ID           string      `json:"id"`
	Kind         ArrivalKind `json:"kind"`
	VesselName   string      `json:"vesselName"`
	Callsign     string      `json:"callsign"`
	IMO          string      `json:"imo"`
	Flag         string      `json:"flag"`
	LocationFrom string      `json:"locationFrom"`
	LocationTo   string      `json:"locationTo"`

	// DueToArriveTime is set for due records, ArrivedTime for arrived ones and
	// DepartedTime for departures.
	DueToArriveTime *time.Time `json:"dueToArriveTime,omitempty"`
	ArrivedTime     *time.Time `json:"arrivedTime,omitempty"`
	DepartedTime    *time.Time `json:"departedTime,omitempty"`
	FetchedAt       *time.Time `json:"fetchedAt,omitempty"`
}
