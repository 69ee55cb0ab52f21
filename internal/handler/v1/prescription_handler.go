package v1

import (
	"net/http"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const allStatuses = "ALL"

type PrescriptionHandler struct {
	svc PrescriptionService
	log *zap.Logger
}

func NewPrescriptionHandler(svc PrescriptionService, log *zap.Logger) *PrescriptionHandler {
	return &PrescriptionHandler{svc: svc, log: log}
}

// Patient routes

// ListMine answers GET /prescriptions. Status defaults to ACTIVE and ALL
// lifts the filter.
func (h *PrescriptionHandler) ListMine(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var status *prescription.Status
	raw := strings.TrimSpace(c.DefaultQuery("status", string(prescription.StatusActive)))
	if !strings.EqualFold(raw, allStatuses) {
		s, valid := prescription.ParseStatus(raw)
		if !valid {
			respondValidation(c, map[string]string{"status": "must be one of: ACTIVE, COMPLETED, CANCELLED, ALL"})
			return
		}
		status = &s
	}

	list, err := h.svc.ListForPatient(c.Request.Context(), status, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPrescriptionResponses(list))
}

func (h *PrescriptionHandler) ListRefillEligible(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	list, err := h.svc.ListRefillEligible(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPrescriptionResponses(list))
}

func (h *PrescriptionHandler) GetMine(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetForPatient(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPrescriptionResponse(p))
}

// Prescriber routes

func (h *PrescriptionHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req createPrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Create(c.Request.Context(), req.toCommand(), actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, toPrescriptionResponse(p))
}

func (h *PrescriptionHandler) ListIssued(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var patientID *uuid.UUID
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondValidation(c, map[string]string{"patient_id": "must be a valid UUID"})
			return
		}
		patientID = &id
	}

	list, err := h.svc.ListForPrescriber(c.Request.Context(), patientID, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPrescriptionResponses(list))
}

func (h *PrescriptionHandler) GetIssued(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetForPrescriber(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPrescriptionResponse(p))
}

func (h *PrescriptionHandler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id, req.toCommand(), actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPrescriptionResponse(p))
}

// Cancel accepts an optional JSON body carrying the reason.
func (h *PrescriptionHandler) Cancel(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req cancelPrescriptionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = c.Query("reason")
	}

	if err := h.svc.Cancel(c.Request.Context(), id, req.Reason, actor); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Pharmacist routes

func (h *PrescriptionHandler) Dispense(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dispenseRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Dispense(c.Request.Context(), &prescription.DispenseCommand{
		PrescriptionID: uuid.MustParse(req.PrescriptionID),
		Quantity:       req.Quantity,
		Notes:          req.Notes,
	}, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPrescriptionResponse(p))
}

func (h *PrescriptionHandler) GetByNumber(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	p, err := h.svc.GetByNumber(c.Request.Context(), c.Param("number"), actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPrescriptionResponse(p))
}

func (h *PrescriptionHandler) ListDispensations(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	list, err := h.svc.ListDispensations(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toDispensationResponses(list))
}
