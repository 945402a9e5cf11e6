package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

// withDefaultPage fills in the default limit when the query string left it out
func withDefaultPage(f *types.QueryFilter) *types.QueryFilter {
	if f == nil {
		return types.NewDefaultQueryFilter()
	}
	if f.Limit == nil {
		f.Limit = lo.ToPtr(types.FILTER_DEFAULT_LIMIT)
	}
	return f
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, filter any) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}
