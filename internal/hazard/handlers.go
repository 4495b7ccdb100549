package hazard

import (
	"rideon-backend/internal/auth"
	"rideon-backend/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

type reportRequest struct {
	Lat         *float64 `json:"lat" validate:"required,latitude"`
	Lng         *float64 `json:"lng" validate:"required,longitude"`
	Type        string   `json:"report_type" validate:"required,oneof=OBSTACLE ROAD_DAMAGE CONSTRUCTION SLIPPERY ETC"`
	Description string   `json:"description" validate:"max=1000"`
	Image       string   `json:"image" validate:"max=2048"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=UNCONFIRMED CONFIRMED RESOLVED"`
}

type nearbyQuery struct {
	Lat      *float64 `query:"lat" validate:"required,latitude"`
	Lng      *float64 `query:"lng" validate:"required,longitude"`
	RadiusKm *float64 `query:"radius_km" validate:"required,gte=0"`
}

type routeQuery struct {
	StartLat *float64 `query:"start_lat" validate:"required,latitude"`
	StartLng *float64 `query:"start_lng" validate:"required,longitude"`
	EndLat   *float64 `query:"end_lat" validate:"required,latitude"`
	EndLng   *float64 `query:"end_lng" validate:"required,longitude"`
}

// respond writes reports as JSON, or as a GeoJSON FeatureCollection when
// ?format=geojson is set.
func respond(c *fiber.Ctx, reports []Report) error {
	if c.Query("format") == "geojson" {
		c.Set(fiber.HeaderContentType, "application/geo+json")
		body, err := FeatureCollection(reports).MarshalJSON()
		if err != nil {
			return err
		}
		return c.Send(body)
	}
	return c.JSON(reports)
}

// RegisterRoutes mounts the hazard endpoints. Reads are public; reporting,
// the caller's own reports and status changes need a user.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		var req reportRequest
		if err := request.Body(c, &req); err != nil {
			return err
		}
		report, err := svc.Report(c.UserContext(), userID, ReportInput{
			Lat:         *req.Lat,
			Lng:         *req.Lng,
			Type:        Type(req.Type),
			Description: req.Description,
			Image:       req.Image,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(report)
	})

	r.Get("/types", func(c *fiber.Ctx) error {
		return c.JSON(svc.Types())
	})

	r.Get("/statuses", func(c *fiber.Ctx) error {
		return c.JSON(svc.Statuses())
	})

	r.Get("/nearby", func(c *fiber.Ctx) error {
		var q nearbyQuery
		if err := request.Query(c, &q); err != nil {
			return err
		}
		reports, err := svc.Nearby(c.UserContext(), *q.Lat, *q.Lng, *q.RadiusKm)
		if err != nil {
			return err
		}
		return respond(c, reports)
	})

	r.Get("/nearby/count", func(c *fiber.Ctx) error {
		var q nearbyQuery
		if err := request.Query(c, &q); err != nil {
			return err
		}
		n, err := svc.CountNearby(c.UserContext(), *q.Lat, *q.Lng, *q.RadiusKm)
		if err != nil {
			return err
		}
		return c.JSON(n)
	})

	r.Get("/route", func(c *fiber.Ctx) error {
		var q routeQuery
		if err := request.Query(c, &q); err != nil {
			return err
		}
		reports, err := svc.InRoute(c.UserContext(), *q.StartLat, *q.StartLng, *q.EndLat, *q.EndLng)
		if err != nil {
			return err
		}
		return respond(c, reports)
	})

	r.Get("/recent", func(c *fiber.Ctx) error {
		reports, err := svc.Recent(c.UserContext())
		if err != nil {
			return err
		}
		return respond(c, reports)
	})

	r.Get("/mine", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		reports, err := svc.ByUser(c.UserContext(), userID)
		if err != nil {
			return err
		}
		return respond(c, reports)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		report, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	r.Put("/:id/status", authMiddleware, func(c *fiber.Ctx) error {
		var req statusRequest
		if err := request.Body(c, &req); err != nil {
			return err
		}
		report, err := svc.UpdateStatus(c.UserContext(), c.Params("id"), Status(req.Status))
		if err != nil {
			return err
		}
		return c.JSON(report)
	})
}
