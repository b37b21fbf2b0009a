package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medhelp/medhelp/internal/platform/auth"
	"github.com/medhelp/medhelp/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires scheduling endpoints onto the authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments/book", h.Book)
	api.GET("/appointments", h.ListMine)
	api.GET("/appointments/", h.ListMine)
	api.PUT("/appointments/:id/status", h.UpdateStatus)

	api.POST("/doctors/availability", h.SetAvailability, auth.RequireRole(auth.RoleDoctor))
	api.GET("/doctors/:id/availability", h.DoctorAvailability)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/appointments", h.ListAll)
}

// httpError maps service errors to HTTP status codes per the booking error
// taxonomy.
func httpError(err error) error {
	var invalidReq *InvalidRequestError
	var invalidTr *InvalidTransitionError
	switch {
	case errors.Is(err, ErrSlotTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.As(err, &invalidReq), errors.As(err, &invalidTr):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid identity")
	}
	return id, nil
}

type bookRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     Date      `json:"appointment_date"`
	Time     TimeOfDay `json:"appointment_time"`
	Type     string    `json:"appointment_type"`
}

func (h *Handler) Book(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	var in bookRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}

	appt, err := h.svc.RequestBooking(c.Request().Context(), uid, BookingInput{
		DoctorID: in.DoctorID,
		Date:     in.Date,
		Time:     in.Time,
		Type:     in.Type,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":        "Appointment requested successfully",
		"appointment_id": appt.ID,
		"appointment":    appt,
	})
}

func (h *Handler) ListMine(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	role := auth.RoleFromContext(c.Request().Context())
	items, err := h.svc.ListForCaller(c.Request().Context(), uid, role)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, items)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in statusRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	appt, err := h.svc.UpdateStatus(c.Request().Context(), id, uid, in.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

type availabilityRequest struct {
	DaysOfWeek []string  `json:"days_of_week"`
	StartTime  TimeOfDay `json:"start_time"`
	EndTime    TimeOfDay `json:"end_time"`
}

func (h *Handler) SetAvailability(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	var in availabilityRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.svc.SetAvailability(c.Request().Context(), uid, in.DaysOfWeek, in.StartTime, in.EndTime)
	if err != nil {
		return httpError(err)
	}
	days := make([]string, 0, len(created))
	for _, a := range created {
		days = append(days, a.DayOfWeek)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Availability set",
		"days":    days,
	})
}

func (h *Handler) DoctorAvailability(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.DoctorAvailability(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Availability{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListAll(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAll(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
