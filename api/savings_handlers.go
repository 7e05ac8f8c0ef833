package api

import (
	"net/http"
	"time"

	"sacco/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type contributionRequest struct {
	MemberID    int64           `json:"member_id"`
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number"`
}

type interestRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, defaults to today
}

func (s *Server) handleContribute(c *gin.Context) {
	var req contributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := s.services.Contributions.Contribute(c.Request.Context(), service.ContributionRequest{
		MemberID:    req.MemberID,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleApplyInterest(c *gin.Context) {
	var req interestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	day := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			badRequest(c, "date must be formatted as YYYY-MM-DD")
			return
		}
		day = parsed
	}

	run, err := s.services.Interest.ApplyDailyInterest(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}
