package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/service"
	"github.com/subdesk/subdesk/internal/types"
)

type BillingHandler struct {
	billing  service.BillingService
	invoices service.InvoiceService
	log      *logger.Logger
}

func NewBillingHandler(
	billing service.BillingService,
	invoices service.InvoiceService,
	log *logger.Logger,
) *BillingHandler {
	return &BillingHandler{
		billing:  billing,
		invoices: invoices,
		log:      log,
	}
}

// @Summary Generate due invoices
// @Description Run the billing cycle now. Every due WAITING or ACTIVE subscription is invoiced once and its next billing date advanced by one cycle.
// @Tags Billing
// @Produce json
// @Success 200 {object} dto.GenerateInvoicesResponse
// @Failure 429 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /billing/generate [post]
func (h *BillingHandler) GenerateInvoices(c *gin.Context) {
	ctx := types.SetBillingTrigger(c.Request.Context(), types.BillingTriggerAPI)

	resp, err := h.billing.GenerateDueInvoices(ctx)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Billing history
// @Description List invoices newest first with customer, plan and schedule details
// @Tags Billing
// @Produce json
// @Param filter query types.InvoiceFilter false "Filter"
// @Success 200 {object} dto.BillingHistoryResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /billing/history [get]
func (h *BillingHandler) GetHistory(c *gin.Context) {
	var filter types.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	filter.QueryFilter = withDefaultPage(filter.QueryFilter)

	resp, err := h.invoices.GetBillingHistory(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
