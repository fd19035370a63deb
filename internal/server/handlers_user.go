package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	profiledomain "github.com/makoban/koubo-navi/internal/companyprofile/domain"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	"go.uber.org/zap"
)

type analyzeCompanyRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// AnalyzeCompany profiles the caller's company from its website (or supplied
// free text) and replaces the stored profile.
func (s *Server) AnalyzeCompany(c *gin.Context) {
	ident := identityFrom(c)

	var req analyzeCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, badRequest("不正なJSON"))
		return
	}

	profile, err := s.profileSvc.Analyze(c.Request.Context(), ident.UserID, profiledomain.AnalyzeRequest{
		URL:  req.URL,
		Text: req.Text,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Register upserts the user row, marks the trial window and stores the
// selected areas. Called once when onboarding completes.
func (s *Server) Register(c *gin.Context) {
	ident := identityFrom(c)

	var req userdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, badRequest("不正なJSON"))
		return
	}

	resp, err := s.userSvc.Register(c.Request.Context(), ident.UserID, ident.Email, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListAreas(c *gin.Context) {
	areas, err := s.areaSvc.ListAreas(c.Request.Context())
	if err != nil {
		s.log.Error("area listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "エリア取得失敗"})
		return
	}
	if areas == nil {
		areas = []areadomain.Area{}
	}

	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

// GetProfile returns the user row, the company profile and the active area
// ids in one payload. Missing rows come back as null, not 404.
func (s *Server) GetProfile(c *gin.Context) {
	ident := identityFrom(c)
	ctx := c.Request.Context()

	user, err := s.userSvc.Get(ctx, ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	profile, err := s.profileSvc.Get(ctx, ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	areaIDs, err := s.areaSvc.ActiveAreaIDs(ctx, ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if areaIDs == nil {
		areaIDs = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"profile": profile,
		"areas":   areaIDs,
	})
}

type putProfileRequest struct {
	userdomain.UpdateSettingsRequest
	MatchingKeywords []string `json:"matching_keywords"`
}

// PutProfile patches notification settings on the user row and, when
// supplied, the profile's matching keywords.
func (s *Server) PutProfile(c *gin.Context) {
	ident := identityFrom(c)

	var req putProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, badRequest("不正なJSON"))
		return
	}

	if err := s.userSvc.UpdateSettings(c.Request.Context(), ident.UserID, req.UpdateSettingsRequest); err != nil {
		AbortWithError(c, err)
		return
	}

	if req.MatchingKeywords != nil {
		if err := s.profileSvc.UpdateKeywords(c.Request.Context(), ident.UserID, req.MatchingKeywords); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// PutAreas replaces the caller's active area set.
func (s *Server) PutAreas(c *gin.Context) {
	ident := identityFrom(c)

	var req areadomain.ReplaceAreasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, badRequest("不正なJSON"))
		return
	}

	if err := s.areaSvc.ReplaceUserAreas(c.Request.Context(), ident.UserID, req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true, "area_ids": req.AreaIDs})
}
