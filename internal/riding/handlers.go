package riding

import (
	"time"

	"rideon-backend/internal/auth"
	"rideon-backend/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

type locationRequest struct {
	Lat            *float64   `json:"lat" validate:"required,latitude"`
	Lng            *float64   `json:"lng" validate:"required,longitude"`
	SpeedKmh       *float64   `json:"speed_kmh" validate:"omitempty,gte=0"`
	Altitude       *float64   `json:"altitude"`
	Accuracy       *float64   `json:"accuracy" validate:"omitempty,gte=0"`
	Heading        *float64   `json:"heading" validate:"omitempty,gte=0,lt=360"`
	BatteryLevel   *int       `json:"battery_level" validate:"omitempty,gte=0,lte=100"`
	NetworkQuality string     `json:"network_quality" validate:"omitempty,oneof=UNKNOWN POOR FAIR GOOD EXCELLENT"`
	IsOfflineSync  bool       `json:"is_offline_sync"`
	RecordedAt     *time.Time `json:"recorded_at"`
}

func (r locationRequest) sample() LocationSample {
	l := LocationSample{
		Lat:            *r.Lat,
		Lng:            *r.Lng,
		SpeedKmh:       r.SpeedKmh,
		Altitude:       r.Altitude,
		Accuracy:       r.Accuracy,
		Heading:        r.Heading,
		BatteryLevel:   r.BatteryLevel,
		NetworkQuality: Quality(r.NetworkQuality),
		IsOfflineSync:  r.IsOfflineSync,
	}
	if r.RecordedAt != nil {
		l.RecordedAt = *r.RecordedAt
	}
	return l
}

type networkRequest struct {
	ConnectionType       string     `json:"connection_type"`
	SignalStrength       *int       `json:"signal_strength" validate:"omitempty,gte=0,lte=100"`
	Connected            *bool      `json:"is_connected" validate:"required"`
	LatencyMs            *int64     `json:"latency_ms" validate:"omitempty,gte=0"`
	UploadSpeedMbps      *float64   `json:"upload_speed_mbps" validate:"omitempty,gte=0"`
	DownloadSpeedMbps    *float64   `json:"download_speed_mbps" validate:"omitempty,gte=0"`
	PacketLossPercentage *float64   `json:"packet_loss_percentage" validate:"omitempty,gte=0,lte=100"`
	RecordedAt           *time.Time `json:"recorded_at"`
}

func (r networkRequest) sample() NetworkSample {
	n := NetworkSample{
		ConnectionType:       r.ConnectionType,
		SignalStrength:       r.SignalStrength,
		Connected:            *r.Connected,
		LatencyMs:            r.LatencyMs,
		UploadSpeedMbps:      r.UploadSpeedMbps,
		DownloadSpeedMbps:    r.DownloadSpeedMbps,
		PacketLossPercentage: r.PacketLossPercentage,
	}
	if r.RecordedAt != nil {
		n.RecordedAt = *r.RecordedAt
	}
	return n
}

type statsRequest struct {
	TotalDistanceKm float64 `json:"total_distance_km" validate:"gte=0"`
	AvgSpeedKmh     float64 `json:"avg_speed_kmh" validate:"gte=0"`
	MaxSpeedKmh     float64 `json:"max_speed_kmh" validate:"gte=0"`
	CaloriesBurned  float64 `json:"calories_burned" validate:"gte=0"`
}

type pageQuery struct {
	Page int `query:"page" validate:"gte=0"`
	Size int `query:"size" validate:"gte=0"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		sess, err := svc.CreateSession(c.UserContext(), userID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	})

	r.Get("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		var q pageQuery
		if err := request.Query(c, &q); err != nil {
			return err
		}
		page, err := svc.SessionsByUser(c.UserContext(), userID, q.Page, q.Size)
		if err != nil {
			return err
		}
		return c.JSON(page)
	})

	// Registered ahead of /sessions/:id so "active" is not taken as an id.
	r.Get("/sessions/active", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		sess, err := svc.GetActive(c.UserContext(), userID)
		if err != nil {
			return err
		}
		return c.JSON(sess)
	})

	r.Get("/sessions/:id", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := svc.GetSession(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(sess)
	})

	r.Post("/sessions/:id/location", authMiddleware, func(c *fiber.Ctx) error {
		var req locationRequest
		if err := request.Body(c, &req); err != nil {
			return err
		}
		sample, err := svc.RecordLocation(c.UserContext(), c.Params("id"), req.sample())
		if err != nil {
			return err
		}
		return c.JSON(sample)
	})

	r.Get("/sessions/:id/locations", authMiddleware, func(c *fiber.Ctx) error {
		list, err := svc.Locations(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	r.Post("/sessions/:id/network", authMiddleware, func(c *fiber.Ctx) error {
		var req networkRequest
		if err := request.Body(c, &req); err != nil {
			return err
		}
		sample, err := svc.RecordNetworkSample(c.UserContext(), c.Params("id"), req.sample())
		if err != nil {
			return err
		}
		return c.JSON(sample)
	})

	r.Get("/sessions/:id/network/quality", authMiddleware, func(c *fiber.Ctx) error {
		q, err := svc.AssessQuality(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"session_id": c.Params("id"), "quality": q})
	})

	r.Get("/sessions/:id/network/recommendation", authMiddleware, func(c *fiber.Ctx) error {
		rec, err := svc.Recommend(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(rec)
	})

	statusRoutes := map[string]func(c *fiber.Ctx) (Session, error){
		"pause":  func(c *fiber.Ctx) (Session, error) { return svc.Pause(c.UserContext(), c.Params("id")) },
		"resume": func(c *fiber.Ctx) (Session, error) { return svc.Resume(c.UserContext(), c.Params("id")) },
		"end":    func(c *fiber.Ctx) (Session, error) { return svc.End(c.UserContext(), c.Params("id")) },
		"cancel": func(c *fiber.Ctx) (Session, error) { return svc.Cancel(c.UserContext(), c.Params("id")) },
	}
	for action, fn := range statusRoutes {
		fn := fn
		r.Put("/sessions/:id/"+action, authMiddleware, func(c *fiber.Ctx) error {
			sess, err := fn(c)
			if err != nil {
				return err
			}
			return c.JSON(sess)
		})
	}

	r.Put("/sessions/:id/stats", authMiddleware, func(c *fiber.Ctx) error {
		var req statsRequest
		if err := request.Body(c, &req); err != nil {
			return err
		}
		sess, err := svc.UpdateStats(c.UserContext(), c.Params("id"), Stats(req))
		if err != nil {
			return err
		}
		return c.JSON(sess)
	})

	r.Get("/sessions/:id/summary", authMiddleware, func(c *fiber.Ctx) error {
		summary, err := svc.Summary(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(summary)
	})

	r.Get("/sessions/:id/pending-sync", authMiddleware, func(c *fiber.Ctx) error {
		list, err := svc.PendingSync(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	r.Post("/sessions/:id/sync-offline", authMiddleware, func(c *fiber.Ctx) error {
		synced, err := svc.SyncOfflineData(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"session_id": c.Params("id"), "synced": synced})
	})
}

// SessionGuard rejects live stream upgrades for sessions that do not exist.
func SessionGuard(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := svc.GetSession(c.UserContext(), c.Params("sessionID")); err != nil {
			return err
		}
		return c.Next()
	}
}
