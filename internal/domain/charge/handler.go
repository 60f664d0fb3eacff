package charge

import (
	"strconv"

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
	readGroup := api.Group("", auth.RequireRole(auth.ChargeReaders...))
	readGroup.GET("/charges", h.ListCharges)
	readGroup.GET("/charges/:id", h.GetCharge)

	writeGroup := api.Group("", auth.RequireRole(auth.ChargeWriters...))
	writeGroup.POST("/charges", h.AddCharge)
}

func (h *Handler) AddCharge(c echo.Context) error {
	var req AddRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	ctx := c.Request().Context()
	req.AddedBy = auth.UserIDFromContext(ctx)
	d, err := h.svc.AddCharge(ctx, req)
	if err != nil {
		return err
	}
	return envelope.Created(c, "charge added", d)
}

func (h *Handler) GetCharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid charge id")
	}
	d, err := h.svc.GetCharge(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return envelope.OK(c, d)
}

func (h *Handler) ListCharges(c echo.Context) error {
	var f Filter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.Validation("invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("admission_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.Validation("invalid admission_id")
		}
		f.AdmissionID = &id
	}
	if v := c.QueryParam("paid"); v != "" {
		paid, err := strconv.ParseBool(v)
		if err != nil {
			return apperror.Validation("paid must be true or false")
		}
		f.Paid = &paid
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Detail{}
	}
	return envelope.OK(c, pagination.NewPage(items, total, pg))
}
