package api

import (
	"net/http"
	"strings"

	"sacco/domain"
	"sacco/models"
	"sacco/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createLoanRequest struct {
	MemberID           int64                     `json:"member_id"`
	RequestedAmount    decimal.Decimal           `json:"requested_amount"`
	TimelineMonths     int                       `json:"timeline_months"`
	Reason             models.LoanReason         `json:"loan_reason"`
	RepaymentFrequency models.RepaymentFrequency `json:"repayment_frequency"`
	GuarantorMemberIDs []int64                   `json:"guarantor_member_ids"`
}

type actionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type repaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number"`
}

type replaceGuarantorRequest struct {
	MemberID int64 `json:"member_id"`
}

func (s *Server) handleCreateLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	detail, err := s.services.Loans.CreateLoan(c.Request.Context(), service.CreateLoanRequest{
		MemberID:           req.MemberID,
		Amount:             req.RequestedAmount,
		TimelineMonths:     req.TimelineMonths,
		Reason:             req.Reason,
		RepaymentFrequency: req.RepaymentFrequency,
		GuarantorMemberIDs: req.GuarantorMemberIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

func (s *Server) handleGetLoan(c *gin.Context) {
	loanID, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := s.services.Loans.GetLoan(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleDecideLoan(c *gin.Context) {
	loanID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	action := domain.ManagerAction(strings.ToLower(req.Action))
	loan, err := s.services.Loans.DecideLoan(c.Request.Context(), loanID, action, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loan)
}

func (s *Server) handleDisburseLoan(c *gin.Context) {
	loanID, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := s.services.Loans.DisburseLoan(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRepayLoan(c *gin.Context) {
	loanID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req repaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := s.services.Loans.RepayLoan(c.Request.Context(), loanID, req.Amount, req.PhoneNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleReplaceGuarantor(c *gin.Context) {
	loanID, ok := idParam(c, "id")
	if !ok {
		return
	}
	guarantorID, ok := idParam(c, "guarantor_id")
	if !ok {
		return
	}

	var req replaceGuarantorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	guarantor, err := s.services.Loans.ReplaceGuarantor(c.Request.Context(), loanID, guarantorID, req.MemberID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, guarantor)
}

func (s *Server) handleRespondGuarantor(c *gin.Context) {
	guarantorID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	action := models.GuarantorAction(strings.ToLower(req.Action))
	guarantor, err := s.services.Loans.RespondAsGuarantor(c.Request.Context(), guarantorID, action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, guarantor)
}

func (s *Server) handleExpireGuarantors(c *gin.Context) {
	count, err := s.services.Expiry.ExpireStale(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": count})
}
