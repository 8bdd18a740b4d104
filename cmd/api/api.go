package api

import (
	"log"
	"net/http"
	"os"

	"github.com/fitcore/fitcore-server/service/availability"
	"github.com/fitcore/fitcore-server/service/booking"
	"github.com/fitcore/fitcore-server/service/catalog"
	"github.com/fitcore/fitcore-server/service/dashboard"
	"github.com/fitcore/fitcore-server/service/membership"
	notification "github.com/fitcore/fitcore-server/service/notifications"
	"github.com/fitcore/fitcore-server/service/transactions"
	"github.com/fitcore/fitcore-server/service/user"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	notifier := notification.NewBookingNotifier(s.db)
	bookingService := booking.NewService(s.db, booking.ConfigFromEnv(), notifier)

	bookingHandler := booking.NewBookingHandler(bookingService)
	bookingHandler.RegisterRoutes(subrouter)

	availabilityHandler := availability.NewAvailabilityHandler(bookingService)
	availabilityHandler.RegisterRoutes(subrouter)

	catalogHandler := catalog.NewCatalogHandler(s.db)
	catalogHandler.RegisterRoutes(subrouter)

	membershipHandler := membership.NewMembershipHandler(s.db)
	membershipHandler.RegisterRoutes(subrouter)

	transactionHandler := transactions.NewTransactionHandler(s.db)
	transactionHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	corsOrigin := os.Getenv("CORS_ALLOWED_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{corsOrigin}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}
