package v1

import (
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	svc CatalogService
	log *zap.Logger
}

func NewCatalogHandler(svc CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log}
}

// List answers GET /medications?name=&available=.
func (h *CatalogHandler) List(c *gin.Context) {
	available, _ := strconv.ParseBool(c.Query("available"))
	meds, err := h.svc.Search(c.Request.Context(), &medication.ListMedicationsQuery{
		Name:          c.Query("name"),
		AvailableOnly: available,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toMedicationResponses(meds))
}

func (h *CatalogHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	med, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, toMedicationResponse(med))
}
