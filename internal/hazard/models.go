package hazard

import "time"

type Type string

const (
	TypeObstacle     Type = "OBSTACLE"
	TypeRoadDamage   Type = "ROAD_DAMAGE"
	TypeConstruction Type = "CONSTRUCTION"
	TypeSlippery     Type = "SLIPPERY"
	TypeEtc          Type = "ETC"
)

type Status string

const (
	StatusUnconfirmed Status = "UNCONFIRMED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusResolved    Status = "RESOLVED"
)

// Option is a selectable enum value with a human readable label.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var typeOptions = []Option{
	{string(TypeObstacle), "Obstacle"},
	{string(TypeRoadDamage), "Road damage"},
	{string(TypeConstruction), "Construction"},
	{string(TypeSlippery), "Slippery surface"},
	{string(TypeEtc), "Other"},
}

var statusOptions = []Option{
	{string(StatusUnconfirmed), "Unconfirmed"},
	{string(StatusConfirmed), "Confirmed"},
	{string(StatusResolved), "Resolved"},
}

func (t Type) Valid() bool {
	for _, o := range typeOptions {
		if o.Code == string(t) {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	for _, o := range statusOptions {
		if o.Code == string(s) {
			return true
		}
	}
	return false
}

// Report is a crowd-sourced road hazard.
type Report struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Type        Type      `json:"report_type"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReportInput struct {
	Lat         float64
	Lng         float64
	Type        Type
	Description string
	Image       string
}
