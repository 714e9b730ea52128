package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/spetersoncode/llmgate/gateway"
)

func (s *Server) usage(c *gin.Context) {
	if !s.requireMasterKey(c) {
		return
	}
	records, err := s.deps.Usage.UserUsage(c.Request.Context(), s.cfg.Gateway.UserID)
	if err != nil {
		s.log(c).Error("usage fetch failed", "user_id", s.cfg.Gateway.UserID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to fetch usage: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gateway.Summarize(records))
}

// usageUsers aggregates usage across ?ids=a,b, or across every gateway user
// when ids is empty.
func (s *Server) usageUsers(c *gin.Context) {
	if !s.requireMasterKey(c) {
		return
	}
	ctx := c.Request.Context()

	ids := lo.Compact(lo.Map(strings.Split(c.Query("ids"), ","), func(id string, _ int) string {
		return strings.TrimSpace(id)
	}))
	if len(ids) == 0 {
		all, err := s.deps.Usage.ListUsers(ctx)
		if err != nil {
			detail(c, http.StatusInternalServerError, "Failed to fetch usage: "+err.Error())
			return
		}
		ids = all
	}

	agg, err := s.deps.Usage.AggregateUsers(ctx, ids)
	if err != nil {
		s.log(c).Error("usage aggregation failed", "users", len(ids), "error", err)
		detail(c, http.StatusInternalServerError, "Failed to fetch usage: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, agg)
}

// usageLocal reports what the local ledger recorded for ?user=, defaulting
// to the configured user.
func (s *Server) usageLocal(c *gin.Context) {
	if s.deps.Ledger == nil {
		detail(c, http.StatusServiceUnavailable, "Local usage ledger not configured")
		return
	}
	ctx := c.Request.Context()
	user := c.DefaultQuery("user", s.cfg.Gateway.UserID)
	limit, _ := strconv.Atoi(c.Query("limit"))

	summary, err := s.deps.Ledger.Summary(ctx, user)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Failed to read local usage: "+err.Error())
		return
	}
	byModel, err := s.deps.Ledger.SummaryByModel(ctx, user)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Failed to read local usage: "+err.Error())
		return
	}
	recent, err := s.deps.Ledger.Recent(ctx, user, limit)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Failed to read local usage: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  user,
		"summary":  summary,
		"by_model": byModel,
		"recent":   recent,
	})
}
