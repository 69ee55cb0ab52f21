package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PatientHandler struct {
	svc PatientService
	log *zap.Logger
}

func NewPatientHandler(svc PatientService, log *zap.Logger) *PatientHandler {
	return &PatientHandler{svc: svc, log: log}
}

func (h *PatientHandler) Register(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req registerPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.svc.Register(c.Request.Context(), req.toCommand(), actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, toPatientProfileResponse(profile))
}

func (h *PatientHandler) Me(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	profile, err := h.svc.Me(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toPatientProfileResponse(profile))
}
