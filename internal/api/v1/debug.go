package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/service"
)

type DebugHandler struct {
	service service.DebugService
	log     *logger.Logger
}

func NewDebugHandler(service service.DebugService, log *logger.Logger) *DebugHandler {
	return &DebugHandler{
		service: service,
		log:     log,
	}
}

// @Summary Reset invoices
// @Description Delete every invoice
// @Tags Debug
// @Produce json
// @Success 200 {object} dto.ResetInvoicesResponse
// @Router /debug/reset-invoices [post]
func (h *DebugHandler) ResetInvoices(c *gin.Context) {
	resp, err := h.service.ResetInvoices(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Set a subscription due today
// @Description Move one random ACTIVE subscription's next billing date to today's start of day
// @Tags Debug
// @Produce json
// @Success 200 {object} dto.SetDueTodayResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /debug/set-due-today [post]
func (h *DebugHandler) SetDueToday(c *gin.Context) {
	resp, err := h.service.SetDueToday(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
