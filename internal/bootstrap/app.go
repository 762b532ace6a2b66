package bootstrap

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"odysseum/internal/config"
	"odysseum/internal/domain/auth"
	"odysseum/internal/domain/booking"
	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
	"odysseum/internal/middleware"
	"odysseum/internal/pkg/jwt"
)

// App holds the wired services of one process.
type App struct {
	Router   *gin.Engine
	Users    *auth.UserRepository
	Catalog  *catalog.Catalog
	Bookings *booking.Service
	Sweeper  *booking.Sweeper
	Gateway  *payment.Sandbox
}

// Models lists every table the application owns, in migration order.
func Models() []any {
	return []any{
		&auth.User{},
		&catalog.Business{},
		&catalog.Service{},
		&catalog.SpecialPrice{},
		&catalog.AvailabilityEntry{},
		&booking.Booking{},
		&booking.Transaction{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func New(cfg *config.Config, db *gorm.DB, log logrus.FieldLogger) *App {
	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens := jwt.New(cfg.JWTSecret, cfg.JWTTTL)

	users := auth.NewUserRepository(db)
	authHandler := auth.NewHandler(auth.NewService(users, tokens, log.WithField("component", "auth")))

	services := catalog.NewRepository(db)
	catalogSvc := catalog.NewCatalog(services, log.WithField("component", "catalog"))
	catalogHandler := catalog.NewHandler(catalogSvc)

	gateway := payment.NewSandbox(log.WithField("component", "payment"))
	orchestrator := booking.NewOrchestrator(gateway, gateway, log.WithField("component", "payment"))
	bookings := booking.NewService(
		booking.NewRepository(db),
		services,
		users,
		orchestrator,
		log.WithField("component", "booking"),
		booking.Options{MatchMode: booking.MatchMode(cfg.SpecialPriceMatch)},
	)
	bookingHandler := booking.NewHandler(bookings)

	r := gin.New()
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)
		catalogHandler.RegisterPublicRoutes(v1)
		bookingHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(tokens))
		{
			authHandler.RegisterProtectedRoutes(protected)
			catalogHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			bookingHandler.RegisterAdminRoutes(protected)
		}
	}

	return &App{
		Router:   r,
		Users:    users,
		Catalog:  catalogSvc,
		Bookings: bookings,
		Sweeper:  booking.NewSweeper(bookings, log.WithField("component", "sweeper"), cfg.SweepInterval, cfg.SweepBatch),
		Gateway:  gateway,
	}
}
