package riding

import "time"

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

type Quality string

const (
	QualityUnknown   Quality = "UNKNOWN"
	QualityPoor      Quality = "POOR"
	QualityFair      Quality = "FAIR"
	QualityGood      Quality = "GOOD"
	QualityExcellent Quality = "EXCELLENT"
)

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Location is the last known position of a rider.
type Location struct {
	Lat  float64   `json:"lat"`
	Lng  float64   `json:"lng"`
	Time time.Time `json:"time"`
}

// Stats are maintained by an external collaborator, never derived here.
type Stats struct {
	TotalDistanceKm float64 `json:"total_distance_km"`
	AvgSpeedKmh     float64 `json:"avg_speed_kmh"`
	MaxSpeedKmh     float64 `json:"max_speed_kmh"`
	CaloriesBurned  float64 `json:"calories_burned"`
}

type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Status    Status     `json:"status"`
	Stats

	LastLocation        *Location `json:"last_location,omitempty"`
	NetworkQuality      Quality   `json:"network_quality"`
	ConnectionLostCount int       `json:"connection_lost_count"`
	CreatedAt           time.Time `json:"created_at"`
}

type LocationSample struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	SpeedKmh       *float64  `json:"speed_kmh,omitempty"`
	Altitude       *float64  `json:"altitude,omitempty"`
	Accuracy       *float64  `json:"accuracy,omitempty"`
	Heading        *float64  `json:"heading,omitempty"`
	BatteryLevel   *int      `json:"battery_level,omitempty"`
	NetworkQuality Quality   `json:"network_quality,omitempty"`
	IsOfflineSync  bool      `json:"is_offline_sync"`
	RecordedAt     time.Time `json:"recorded_at"`
	CreatedAt      time.Time `json:"created_at"`
}

type NetworkSample struct {
	ID                   int64     `json:"id"`
	SessionID            string    `json:"session_id"`
	ConnectionType       string    `json:"connection_type"`
	SignalStrength       *int      `json:"signal_strength,omitempty"`
	Connected            bool      `json:"is_connected"`
	LatencyMs            *int64    `json:"latency_ms,omitempty"`
	UploadSpeedMbps      *float64  `json:"upload_speed_mbps,omitempty"`
	DownloadSpeedMbps    *float64  `json:"download_speed_mbps,omitempty"`
	PacketLossPercentage *float64  `json:"packet_loss_percentage,omitempty"`
	RecordedAt           time.Time `json:"recorded_at"`
}

type Recommendation struct {
	Action   string   `json:"action"`
	Message  string   `json:"message"`
	Priority Priority `json:"priority"`
}

type Summary struct {
	SessionID       string  `json:"session_id"`
	Status          Status  `json:"status"`
	PointCount      int64   `json:"point_count"`
	DistanceKm      float64 `json:"distance_km"`
	DurationSec     int64   `json:"duration_sec"`
	AverageSpeedKmh float64 `json:"average_speed_kmh"`
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}
