package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	analysisdomain "github.com/makoban/koubo-navi/internal/analysis/domain"
	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	billingdomain "github.com/makoban/koubo-navi/internal/billing/domain"
	profiledomain "github.com/makoban/koubo-navi/internal/companyprofile/domain"
	opportunitydomain "github.com/makoban/koubo-navi/internal/opportunity/domain"
	"github.com/makoban/koubo-navi/internal/providers/ai"
	screeningdomain "github.com/makoban/koubo-navi/internal/screening/domain"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	"gorm.io/gorm"
)

// ErrAuthRequired marks a request whose bearer token did not resolve to a
// known user.
var ErrAuthRequired = errors.New("auth_required")

type errorResponse struct {
	Error string `json:"error"`
}

// requestError carries a caller-facing validation message verbatim.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// ErrorHandlingMiddleware converts the last gin error into the flat
// {error: string} envelope every endpoint uses.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, message := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: message})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, reqErr.msg
	}

	var parseErr *ai.ParseError
	if errors.As(err, &parseErr) {
		return http.StatusBadGateway, "AI応答の解析に失敗しました"
	}

	switch {
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized, "認証が必要です"
	case errors.Is(err, billingdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, "署名が不正です"
	case errors.Is(err, billingdomain.ErrMissingSignature):
		return http.StatusBadRequest, "署名がありません"
	case errors.Is(err, billingdomain.ErrInvalidPayload):
		return http.StatusBadRequest, "不正なJSON"
	case errors.Is(err, userdomain.ErrInvalidCompanyURL):
		return http.StatusBadRequest, "company_url は必須です"
	case errors.Is(err, userdomain.ErrInvalidUser):
		return http.StatusBadRequest, "不正なリクエスト"
	case errors.Is(err, profiledomain.ErrInvalidInput):
		return http.StatusBadRequest, "url または text を指定してください"
	case errors.Is(err, areadomain.ErrInvalidAreaIDs):
		return http.StatusBadRequest, "area_ids は配列で指定してください"
	case errors.Is(err, areadomain.ErrTooManyAreas):
		return http.StatusBadRequest, "エリアは3件までです"
	case errors.Is(err, billingdomain.ErrNoSubscription):
		return http.StatusNotFound, "サブスクリプションが見つかりません"
	case errors.Is(err, analysisdomain.ErrOpportunityNotFound):
		return http.StatusNotFound, "案件が見つかりません"
	case errors.Is(err, screeningdomain.ErrUserNotFound),
		errors.Is(err, userdomain.ErrNotFound):
		return http.StatusNotFound, "ユーザーが見つかりません"
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "見つかりません"
	case errors.Is(err, profiledomain.ErrSiteFetch):
		return http.StatusBadGateway, "サイト取得失敗"
	case errors.Is(err, ai.ErrUpstream):
		return http.StatusBadGateway, "AIサービスエラー"
	case errors.Is(err, billingdomain.ErrProvider):
		return http.StatusBadGateway, "決済サービスエラー"
	case errors.Is(err, billingdomain.ErrPriceNotConfigured):
		return http.StatusInternalServerError, "Price IDが設定されていません"
	case errors.Is(err, billingdomain.ErrWebhookNotConfigured):
		return http.StatusInternalServerError, "Webhook secretが設定されていません"
	case errors.Is(err, opportunitydomain.ErrOpportunityFetch):
		return http.StatusInternalServerError, "案件取得失敗"
	default:
		return http.StatusInternalServerError, "内部サーバーエラー"
	}
}
