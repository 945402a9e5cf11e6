package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/service"
)

type DashboardHandler struct {
	service service.DashboardService
	log     *logger.Logger
}

func NewDashboardHandler(service service.DashboardService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		log:     log,
	}
}

// @Summary Dashboard stats
// @Description Subscription and customer counts with monthly recurring and collected revenue
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.DashboardStatsResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	resp, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
