package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	agentpay "github.com/x402-foundation/agentpay"
)

type chainInfo struct {
	Chain    agentpay.Chain `json:"chain"`
	Default  bool           `json:"default"`
	Address  string         `json:"address,omitempty"`
	ReadOnly bool           `json:"read_only"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"chains": s.svc.SupportedChains(),
	})
}

func (s *Server) listChains(c *gin.Context) {
	chains := s.svc.SupportedChains()
	out := make([]chainInfo, 0, len(chains))
	for _, chain := range chains {
		info, err := s.svc.GetWalletAddress(c.Request.Context(), string(chain))
		if err != nil {
			s.fail(c, err)
			return
		}
		out = append(out, chainInfo{
			Chain:    chain,
			Default:  chain == s.svc.DefaultChain(),
			Address:  info.Address,
			ReadOnly: info.ReadOnly,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chains": out})
}

func (s *Server) listPayments(c *gin.Context) {
	reqs, err := s.svc.ListPaymentRequests(c.Request.Context(), c.Query("status"), c.Query("chain"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if reqs == nil {
		reqs = []*agentpay.PaymentRequest{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(reqs),
		"requests": reqs,
	})
}

func (s *Server) getPayment(c *gin.Context) {
	req, err := s.svc.GetPaymentRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (s *Server) checkPayment(c *gin.Context) {
	res, err := s.svc.CheckPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// fail writes err as {"error": code, "message": msg} with the matching status
func (s *Server) fail(c *gin.Context, err error) {
	var e *agentpay.Error
	if !errors.As(err, &e) {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	c.AbortWithStatusJSON(statusFor(e.Code), e)
}

func statusFor(code string) int {
	switch {
	case code == agentpay.ErrCodeNotFound:
		return http.StatusNotFound
	case strings.HasPrefix(code, "invalid_"):
		return http.StatusBadRequest
	case code == agentpay.ErrCodeNoWalletConfigured:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
