package v1

import (
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/adherence"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdherenceHandler struct {
	svc AdherenceService
	log *zap.Logger
}

func NewAdherenceHandler(svc AdherenceService, log *zap.Logger) *AdherenceHandler {
	return &AdherenceHandler{svc: svc, log: log}
}

// Take records a dose event for the calling patient.
func (h *AdherenceHandler) Take(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req takeMedicationRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := adherence.ParseStatus(req.Status)
	if err != nil {
		respondValidation(c, map[string]string{"status": "must be one of: TAKEN, MISSED, SKIPPED, LATE"})
		return
	}

	rec, err := h.svc.Record(c.Request.Context(), &adherence.RecordCommand{
		PrescriptionID: id,
		Status:         status,
		Notes:          req.Notes,
		SideEffects:    req.SideEffects,
	}, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toAdherenceResponse(rec))
}

func (h *AdherenceHandler) History(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	records, err := h.svc.History(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toAdherenceResponses(records))
}

func (h *AdherenceHandler) Summary(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, summary)
}
