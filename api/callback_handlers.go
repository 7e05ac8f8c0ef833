package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"sacco/domain"
	"sacco/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const maxCallbackSize = 64 << 10

// callbackAck is the body Daraja expects back from a callback URL
type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// resultCode accepts Daraja codes sent either as numbers or as strings
type resultCode struct {
	value int
	set   bool
}

func (r *resultCode) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid result code %q: %w", data, err)
	}
	r.value, r.set = v, true
	return nil
}

// stkCallbackBody covers both the nested STK callback and the flat form
type stkCallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string     `json:"MerchantRequestID"`
			CheckoutRequestID string     `json:"CheckoutRequestID"`
			ResultCode        resultCode `json:"ResultCode"`
			ResultDesc        string     `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`

	CheckoutRequestID   string     `json:"CheckoutRequestID"`
	ResponseCode        resultCode `json:"ResponseCode"`
	ResponseDescription string     `json:"ResponseDescription"`
}

type resultCallbackBody struct {
	Result struct {
		ResultType               int        `json:"ResultType"`
		ResultCode               resultCode `json:"ResultCode"`
		ResultDesc               string     `json:"ResultDesc"`
		OriginatorConversationID string     `json:"OriginatorConversationID"`
		ConversationID           string     `json:"ConversationID"`
		TransactionID            string     `json:"TransactionID"`
	} `json:"Result"`
}

func (s *Server) handleC2BCallback(c *gin.Context) {
	var body stkCallbackBody
	if err := readCallback(c, &body); err != nil {
		rejectCallback(c, models.TransactionTypeC2B, "Malformed callback payload", err)
		return
	}

	callback := models.GatewayCallback{
		Type:      models.TransactionTypeC2B,
		Reference: c.Query("ref"),
	}

	stk := body.Body.StkCallback
	switch {
	case stk.CheckoutRequestID != "" || stk.ResultCode.set:
		callback.CorrelationID = stk.CheckoutRequestID
		callback.ResultCode = stk.ResultCode.value
		callback.ResultDesc = stk.ResultDesc
	case body.CheckoutRequestID != "" || body.ResponseCode.set:
		callback.CorrelationID = body.CheckoutRequestID
		callback.ResultCode = body.ResponseCode.value
		callback.ResultDesc = body.ResponseDescription
	default:
		rejectCallback(c, callback.Type, "Callback carries no result", nil)
		return
	}

	s.reconcile(c, callback)
}

// resultCallback handles B2C and B2B results, and their queue time-outs
func (s *Server) resultCallback(txType models.TransactionType, timedOut bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body resultCallbackBody
		if err := readCallback(c, &body); err != nil && !timedOut {
			rejectCallback(c, txType, "Malformed callback payload", err)
			return
		}

		result := body.Result
		callback := models.GatewayCallback{
			Type:          txType,
			Reference:     c.Query("ref"),
			CorrelationID: result.ConversationID,
			ResultCode:    result.ResultCode.value,
			ResultDesc:    result.ResultDesc,
			TimedOut:      timedOut,
		}
		if callback.Reference == "" {
			// The core reference doubles as the originator conversation id
			callback.Reference = result.OriginatorConversationID
		}
		if !timedOut && !result.ResultCode.set {
			rejectCallback(c, txType, "Callback carries no result", nil)
			return
		}

		s.reconcile(c, callback)
	}
}

func (s *Server) reconcile(c *gin.Context, callback models.GatewayCallback) {
	result, err := s.services.Reconciler.Reconcile(c.Request.Context(), callback)
	if err != nil {
		reason := "Callback could not be processed"
		if errors.Is(err, domain.ErrUnresolvableCallback) || errors.Is(err, domain.ErrTransactionNotFound) {
			reason = err.Error()
		}
		rejectCallback(c, callback.Type, reason, err)
		return
	}

	log.WithFields(log.Fields{
		"type":          callback.Type,
		"reference":     callback.Reference,
		"correlationID": callback.CorrelationID,
		"outcome":       result.Outcome,
	}).Info("Callback reconciled")

	c.JSON(http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Success"})
}

// rejectCallback acknowledges with ResultCode 1 so the gateway stops retrying
func rejectCallback(c *gin.Context, txType models.TransactionType, reason string, err error) {
	entry := log.WithFields(log.Fields{
		"type":   txType,
		"ref":    c.Query("ref"),
		"reason": reason,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("Rejected gateway callback")

	c.JSON(http.StatusOK, callbackAck{ResultCode: 1, ResultDesc: reason})
}

func readCallback(c *gin.Context, target any) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackSize))
	if err != nil {
		return fmt.Errorf("failed to read callback body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("empty callback body")
	}
	return json.Unmarshal(raw, target)
}

func (s *Server) handleRedispatch(c *gin.Context) {
	count, err := s.services.Redispatch.RedispatchStale(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dispatched": count})
}
