package admission

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
	// Read and admit: admin, doctor, nurse, receptionist
	wardGroup := api.Group("", auth.RequireRole(auth.WardStaff...))
	wardGroup.GET("/admissions", h.ListAdmissions)
	wardGroup.GET("/admissions/stats", h.GetStats)
	wardGroup.GET("/admissions/:id", h.GetAdmission)
	wardGroup.POST("/admissions", h.Admit)

	// Discharge and transfer: admin, doctor, nurse
	clinicalGroup := api.Group("", auth.RequireRole(auth.ClinicalStaff...))
	clinicalGroup.POST("/admissions/:id/discharge", h.Discharge)
	clinicalGroup.POST("/admissions/:id/transfer", h.Transfer)
}

func (h *Handler) Admit(c echo.Context) error {
	var req AdmitRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	ctx := c.Request().Context()
	req.AdmittedBy = auth.UserIDFromContext(ctx)
	d, err := h.svc.Admit(ctx, req)
	if err != nil {
		return err
	}
	return envelope.Created(c, "patient admitted", d)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid admission id")
	}
	var req DischargeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	a, err := h.svc.Discharge(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return envelope.Success(c, http.StatusOK, "patient discharged", a)
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid admission id")
	}
	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	ctx := c.Request().Context()
	req.MovedBy = auth.UserIDFromContext(ctx)
	d, err := h.svc.Transfer(ctx, id, req)
	if err != nil {
		return err
	}
	return envelope.Created(c, "patient transferred", d)
}

func (h *Handler) GetAdmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid admission id")
	}
	d, err := h.svc.GetDetail(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return envelope.OK(c, d)
}

func (h *Handler) ListAdmissions(c echo.Context) error {
	f := Filter{Status: strings.TrimSpace(c.QueryParam("status"))}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.Validation("invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("ward_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.Validation("invalid ward_id")
		}
		f.WardID = &id
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

func (h *Handler) GetStats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return envelope.OK(c, st)
}
