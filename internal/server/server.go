package server

import (
	"rideon-backend/internal/auth"
	"rideon-backend/internal/config"
	"rideon-backend/internal/events"
	"rideon-backend/internal/hazard"
	"rideon-backend/internal/metrics"
	"rideon-backend/internal/riding"
	"rideon-backend/internal/shared/apperr"
	"rideon-backend/internal/stream"

	"github.com/apex/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Stream  *stream.Hub
	Metrics *metrics.Prometheus
	Events  events.Publisher

	Riding  *riding.Service
	Hazards *hazard.Service
}

// NewServer wires the HTTP app. Without a database pool the riding and
// hazard stores fall back to process memory.
func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, publisher events.Publisher) *Server {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})
	app.Use(recover.New())
	app.Use(logger.New())

	if publisher == nil {
		publisher = events.Nop{}
	}

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      db,
		Redis:   redisClient,
		Stream:  stream.NewHub(redisClient),
		Metrics: metrics.NewPrometheus(),
		Events:  publisher,
	}

	var (
		rideStore   riding.Store
		hazardStore hazard.Store
	)
	if db != nil {
		rideStore = riding.NewPGStore(db)
		hazardStore = hazard.NewPGStore(db)
	} else {
		log.Warn("no database pool, riding and hazard data kept in memory")
		rideStore = riding.NewMemoryStore()
		hazardStore = hazard.NewMemoryStore()
	}

	s.Riding = riding.NewService(rideStore, s.Stream, riding.Options{
		Metrics:           s.Metrics,
		Events:            publisher,
		LegacyTransitions: !cfg.StrictTransitions,
	})
	s.Hazards = hazard.NewService(hazardStore, hazard.Options{
		DistanceMetric: cfg.HazardDistanceMetric,
		RecentDays:     cfg.RecentHazardDays,
		Metrics:        s.Metrics,
		Events:         publisher,
	})

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(s.Metrics.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	riding.RegisterRoutes(s.App.Group("/riding"), s.Riding, jwtMiddleware)
	hazard.RegisterRoutes(s.App.Group("/hazards"), s.Hazards, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, riding.SessionGuard(s.Riding))
}
