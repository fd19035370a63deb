package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/makoban/koubo-navi/internal/billing/domain"
)

const maxWebhookBody = 1 << 20

func (s *Server) GetSubscription(c *gin.Context) {
	ident := identityFrom(c)

	info, err := s.billingSvc.GetSubscription(c.Request.Context(), ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// Checkout creates a hosted payment session for the requested plan.
func (s *Server) Checkout(c *gin.Context) {
	ident := identityFrom(c)

	var req billingdomain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, badRequest("不正なJSON"))
		return
	}
	req.Origin = c.GetHeader("Origin")
	req.Email = ident.Email

	resp, err := s.billingSvc.Checkout(c.Request.Context(), ident.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	ident := identityFrom(c)

	resp, err := s.billingSvc.Cancel(c.Request.Context(), ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Webhook takes raw provider events. Once the signature verifies the
// response is always {received: true}; internal persistence failures must not
// make the provider retry-storm.
func (s *Server) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, badRequest("不正なリクエスト"))
		return
	}

	err = s.billingSvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
