package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/travel-golobe/service-booking/internal/application"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/auth"
	"github.com/travel-golobe/service-booking/pkg/middleware"
	"github.com/travel-golobe/service-booking/pkg/response"
)

// AdminBookingHandler handles admin HTTP requests for booking management.
type AdminBookingHandler struct {
	service *application.BookingService
	sweeper *application.ExpirationSweeper
	history application.BookingHistory
}

// NewAdminBookingHandler creates a new AdminBookingHandler. history may be nil,
// in which case the history route is not registered.
func NewAdminBookingHandler(
	service *application.BookingService,
	sweeper *application.ExpirationSweeper,
	history application.BookingHistory,
) *AdminBookingHandler {
	return &AdminBookingHandler{service: service, sweeper: sweeper, history: history}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/bookings/sweep", h.Sweep)
	}
	if h.history != nil {
		admin.GET("/bookings/:id/history", h.BookingHistory)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	bookings, total, err := h.service.ListAllBookings(c.Request.Context(), application.ListBookingsQuery{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// Sweep handles POST /api/v1/admin/bookings/sweep. An empty kind sweeps every kind.
func (h *AdminBookingHandler) Sweep(c *gin.Context) {
	var kinds []inventory.ResourceKind
	if k := c.Query("kind"); k != "" {
		kind, err := inventory.ParseResourceKind(k)
		if err != nil {
			response.Error(c, err)
			return
		}
		kinds = append(kinds, kind)
	}

	report := h.sweeper.Sweep(c.Request.Context(), kinds...)
	response.Success(c, report)
}

// BookingHistory handles GET /api/v1/admin/bookings/:id/history.
func (h *AdminBookingHandler) BookingHistory(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	entries, err := h.history.History(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, application.ToHistoryDTOs(entries))
}
