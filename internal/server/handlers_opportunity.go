package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	opportunitydomain "github.com/makoban/koubo-navi/internal/opportunity/domain"
)

// ListOpportunities serves the tiered, filtered, ranked listing. The
// days/area/offset parameters are accepted for older clients but ignored.
func (s *Server) ListOpportunities(c *gin.Context) {
	ident := identityFrom(c)

	req := opportunitydomain.ListRequest{
		Category: c.Query("category"),
	}
	if v := intQuery(c, "score_min"); v != nil {
		req.ScoreMin = v
	}
	if v := intQuery(c, "score_max"); v != nil {
		req.ScoreMax = v
	}
	if v := intQuery(c, "limit"); v != nil {
		req.Limit = *v
	}

	resp, err := s.opportunitySvc.List(c.Request.Context(), ident.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func intQuery(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

type analyzeOpportunityRequest struct {
	OpportunityID string `json:"opportunity_id"`
}

// AnalyzeOpportunity serves the memoized deep analysis for one opportunity.
func (s *Server) AnalyzeOpportunity(c *gin.Context) {
	ident := identityFrom(c)

	var req analyzeOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, badRequest("不正なJSON"))
		return
	}
	if req.OpportunityID == "" {
		AbortWithError(c, badRequest("opportunity_id は必須です"))
		return
	}

	result, err := s.analysisSvc.Analyze(c.Request.Context(), ident.UserID, req.OpportunityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", result)
}

// TriggerScreening launches the one-time bulk scoring pass and returns
// immediately; clients poll the listing until scored rows appear.
func (s *Server) TriggerScreening(c *gin.Context) {
	ident := identityFrom(c)

	resp, err := s.screeningSvc.Trigger(c.Request.Context(), ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
