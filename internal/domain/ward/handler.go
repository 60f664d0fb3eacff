package ward

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/auth"
	"github.com/GreycodeDev/hospital-management-sub000/pkg/envelope"
	"github.com/GreycodeDev/hospital-management-sub000/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.WardStaff...))
	readGroup.GET("/wards", h.ListWards)
	readGroup.GET("/wards/:id/occupancy", h.GetOccupancy)
	readGroup.GET("/beds", h.ListBeds)
	readGroup.GET("/beds/:id", h.GetBed)

	maintGroup := api.Group("", auth.RequireRole(auth.MaintenanceCrew...))
	maintGroup.PATCH("/beds/:id/maintenance", h.SetMaintenance)
}

func (h *Handler) ListWards(c echo.Context) error {
	wards, err := h.svc.ListWards(c.Request().Context())
	if err != nil {
		return err
	}
	if wards == nil {
		wards = []*Ward{}
	}
	return envelope.OK(c, wards)
}

func (h *Handler) GetOccupancy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid ward id")
	}
	o, err := h.svc.WardOccupancy(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return envelope.OK(c, o)
}

func (h *Handler) ListBeds(c echo.Context) error {
	var f BedFilter
	if v := c.QueryParam("ward_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.Validation("invalid ward_id")
		}
		f.WardID = &id
	}
	f.Status = strings.TrimSpace(c.QueryParam("status"))

	pg := pagination.FromContext(c)
	beds, total, err := h.svc.ListBeds(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if beds == nil {
		beds = []*Bed{}
	}
	return envelope.OK(c, pagination.NewPage(beds, total, pg))
}

func (h *Handler) GetBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid bed id")
	}
	bed, err := h.svc.GetBed(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return envelope.OK(c, bed)
}

type maintenanceRequest struct {
	Maintenance *bool `json:"maintenance"`
}

func (h *Handler) SetMaintenance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid bed id")
	}
	var req maintenanceRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if req.Maintenance == nil {
		return apperror.Validation("maintenance is required")
	}
	bed, err := h.svc.SetMaintenance(c.Request().Context(), id, *req.Maintenance)
	if err != nil {
		return err
	}
	return envelope.OK(c, bed)
}
