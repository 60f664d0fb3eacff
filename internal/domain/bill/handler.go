package bill

import (
	"net/http"
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
	// Read endpoints: admin, billing, receptionist
	readGroup := api.Group("", auth.RequireRole(auth.BillReaders...))
	readGroup.GET("/bills", h.ListBills)
	readGroup.GET("/bills/:id", h.GetBill)

	// Billing desk: admin, billing
	writeGroup := api.Group("", auth.RequireRole(auth.BillingStaff...))
	writeGroup.GET("/bills/stats", h.GetStats)
	writeGroup.POST("/bills/final", h.GenerateFinalBill)
	writeGroup.POST("/bills/:id/payments", h.ApplyPayment)
}

func (h *Handler) GenerateFinalBill(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	d, err := h.svc.GenerateFinalBill(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return envelope.Created(c, "final bill generated", d)
}

func (h *Handler) ApplyPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid bill id")
	}
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	b, err := h.svc.ApplyPayment(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return envelope.Success(c, http.StatusOK, "payment applied", b)
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid bill id")
	}
	d, err := h.svc.GetBill(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return envelope.OK(c, d)
}

func (h *Handler) ListBills(c echo.Context) error {
	f := Filter{PaymentStatus: strings.TrimSpace(c.QueryParam("payment_status"))}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.Validation("invalid patient_id")
		}
		f.PatientID = &id
	}

	pg := pagination.FromContext(c)
	bills, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if bills == nil {
		bills = []*Bill{}
	}
	return envelope.OK(c, pagination.NewPage(bills, total, pg))
}

func (h *Handler) GetStats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return envelope.OK(c, st)
}
