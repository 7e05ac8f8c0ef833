package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sacco/config"
	"sacco/domain"
	"sacco/models"

	log "github.com/sirupsen/logrus"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	stkPath   = "/mpesa/stkpush/v1/processrequest"
	b2cPath   = "/mpesa/b2c/v1/paymentrequest"
	b2bPath   = "/mpesa/b2b/v1/paymentrequest"

	contentType    = "application/json"
	timestampFmt   = "20060102150405"
	successCode    = "0"
	tokenTTLMargin = 60 * time.Second

	// Daraja timestamps are East Africa Time
	eatOffset = 3 * 60 * 60
)

// APIError is a non-success answer from Daraja
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daraja returned status %d (code %q): %s", e.StatusCode, e.Code, e.Message)
}

// Is treats an explicit refusal as domain.ErrPaymentRejected. A server error
// may have come after the request was processed, so it is not a refusal.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrPaymentRejected && e.StatusCode < http.StatusInternalServerError
}

// DarajaClient initiates M-Pesa operations through the Daraja API
type DarajaClient struct {
	cfg        config.DarajaConfig
	httpClient *http.Client
	tokens     TokenStore
	now        func() time.Time
}

// NewDarajaClient builds a client whose calls are bounded by timeout.
// tokens may be nil, in which case every request fetches a fresh token.
func NewDarajaClient(cfg config.DarajaConfig, timeout time.Duration, tokens TokenStore) *DarajaClient {
	return &DarajaClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
		now:    time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type b2cRequest struct {
	OriginatorConversationID string `json:"OriginatorConversationID"`
	InitiatorName            string `json:"InitiatorName"`
	SecurityCredential       string `json:"SecurityCredential"`
	CommandID                string `json:"CommandID"`
	Amount                   string `json:"Amount"`
	PartyA                   string `json:"PartyA"`
	PartyB                   string `json:"PartyB"`
	Remarks                  string `json:"Remarks"`
	QueueTimeOutURL          string `json:"QueueTimeOutURL"`
	ResultURL                string `json:"ResultURL"`
	Occasion                 string `json:"Occasion"`
}

type b2bRequest struct {
	OriginatorConversationID string `json:"OriginatorConversationID"`
	Initiator                string `json:"Initiator"`
	SecurityCredential       string `json:"SecurityCredential"`
	CommandID                string `json:"CommandID"`
	SenderIdentifierType     string `json:"SenderIdentifierType"`
	RecieverIdentifierType   string `json:"RecieverIdentifierType"`
	Amount                   string `json:"Amount"`
	PartyA                   string `json:"PartyA"`
	PartyB                   string `json:"PartyB"`
	AccountReference         string `json:"AccountReference"`
	Remarks                  string `json:"Remarks"`
	QueueTimeOutURL          string `json:"QueueTimeOutURL"`
	ResultURL                string `json:"ResultURL"`
}

// initiationResponse covers the synchronous answers of all three APIs
// and the generic Daraja error body.
type initiationResponse struct {
	MerchantRequestID        string `json:"MerchantRequestID"`
	CheckoutRequestID        string `json:"CheckoutRequestID"`
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
	ErrorCode                string `json:"errorCode"`
	ErrorMessage             string `json:"errorMessage"`
}

// InitiateCollection sends an STK push asking the member to pay
func (c *DarajaClient) InitiateCollection(ctx context.Context, req models.GatewayRequest) (string, error) {
	amount, err := wholeShillings(req)
	if err != nil {
		return "", err
	}

	timestamp := c.now().In(time.FixedZone("EAT", eatOffset)).Format(timestampFmt)
	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          stkPassword(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            req.Party,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.Party,
		CallBackURL:       c.callbackURL("/callbacks/c2b", req.Reference),
		AccountReference:  accountReference(req.Reference),
		TransactionDesc:   req.Description,
	}

	resp, err := c.post(ctx, stkPath, payload)
	if err != nil {
		return "", err
	}
	if resp.CheckoutRequestID == "" {
		return "", errors.New("daraja accepted the request without a CheckoutRequestID")
	}
	return resp.CheckoutRequestID, nil
}

// InitiateDisbursement pays a member through B2C
func (c *DarajaClient) InitiateDisbursement(ctx context.Context, req models.GatewayRequest) (string, error) {
	amount, err := wholeShillings(req)
	if err != nil {
		return "", err
	}

	payload := b2cRequest{
		OriginatorConversationID: req.Reference,
		InitiatorName:            c.cfg.InitiatorName,
		SecurityCredential:       c.cfg.SecurityCredential,
		CommandID:                "BusinessPayment",
		Amount:                   strconv.FormatInt(amount, 10),
		PartyA:                   c.cfg.ShortCode,
		PartyB:                   req.Party,
		Remarks:                  req.Description,
		QueueTimeOutURL:          c.callbackURL("/callbacks/b2c/timeout", req.Reference),
		ResultURL:                c.callbackURL("/callbacks/b2c", req.Reference),
		Occasion:                 "LoanDisbursement",
	}

	resp, err := c.post(ctx, b2cPath, payload)
	if err != nil {
		return "", err
	}
	return conversationID(resp)
}

// InitiateTransfer pays another paybill through B2B
func (c *DarajaClient) InitiateTransfer(ctx context.Context, req models.GatewayRequest) (string, error) {
	amount, err := wholeShillings(req)
	if err != nil {
		return "", err
	}

	payload := b2bRequest{
		OriginatorConversationID: req.Reference,
		Initiator:                c.cfg.InitiatorName,
		SecurityCredential:       c.cfg.SecurityCredential,
		CommandID:                "BusinessPayBill",
		SenderIdentifierType:     "4",
		RecieverIdentifierType:   "4",
		Amount:                   strconv.FormatInt(amount, 10),
		PartyA:                   c.cfg.ShortCode,
		PartyB:                   req.Party,
		AccountReference:         accountReference(req.Reference),
		Remarks:                  req.Description,
		QueueTimeOutURL:          c.callbackURL("/callbacks/b2b/timeout", req.Reference),
		ResultURL:                c.callbackURL("/callbacks/b2b", req.Reference),
	}

	resp, err := c.post(ctx, b2bPath, payload)
	if err != nil {
		return "", err
	}
	return conversationID(resp)
}

// accessToken returns a cached token or fetches a new one.
// Cache failures are logged and never fail the request.
func (c *DarajaClient) accessToken(ctx context.Context) (string, error) {
	if c.tokens != nil {
		token, ok, err := c.tokens.Get(ctx)
		if err != nil {
			log.WithError(err).Warn("Token cache unavailable, requesting a new token")
		} else if ok {
			return token, nil
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	status, body, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &APIError{StatusCode: status, Message: "access token request rejected"}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", &APIError{StatusCode: status, Message: "empty access token"}
	}

	if c.tokens != nil {
		if ttl := tokenTTL(token.ExpiresIn); ttl > 0 {
			if err := c.tokens.Set(ctx, token.AccessToken, ttl); err != nil {
				log.WithError(err).Warn("Failed to cache access token")
			}
		}
	}

	return token.AccessToken, nil
}

func (c *DarajaClient) post(ctx context.Context, path string, payload any) (*initiationResponse, error) {
	// Failures before the request is sent are refusals: the payment never left
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to obtain access token: %w", domain.ErrPaymentRejected, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %w", domain.ErrPaymentRejected, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %w", domain.ErrPaymentRejected, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	status, respBody, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp initiationResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", status, err)
	}

	if status != http.StatusOK || resp.ResponseCode != successCode {
		apiErr := &APIError{StatusCode: status, Code: resp.ResponseCode, Message: resp.ResponseDescription}
		if resp.ErrorCode != "" {
			apiErr.Code = resp.ErrorCode
			apiErr.Message = resp.ErrorMessage
		}
		log.WithFields(log.Fields{
			"path":   path,
			"status": status,
			"code":   apiErr.Code,
		}).Warn("Daraja rejected request")
		return nil, apiErr
	}

	return &resp, nil
}

func (c *DarajaClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request to %s: %w", req.URL.Path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close Daraja response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	log.WithFields(log.Fields{
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	}).Debug("Received Daraja response")

	return resp.StatusCode, body, nil
}

func (c *DarajaClient) callbackURL(path, reference string) string {
	return strings.TrimRight(c.cfg.CallbackBaseURL, "/") + path + "?ref=" + url.QueryEscape(reference)
}

func stkPassword(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// tokenTTL converts Daraja's expires_in seconds into a cache lifetime
// that ends before the token does.
func tokenTTL(expiresIn string) time.Duration {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil {
		return 0
	}
	return time.Duration(seconds)*time.Second - tokenTTLMargin
}

// Daraja only moves whole shillings
func wholeShillings(req models.GatewayRequest) (int64, error) {
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %s is not a positive whole shilling amount", domain.ErrPaymentRejected, req.Amount.StringFixed(2))
	}
	return req.Amount.IntPart(), nil
}

// AccountReference is limited to 12 characters
func accountReference(reference string) string {
	if len(reference) > 12 {
		return reference[:12]
	}
	return reference
}

func conversationID(resp *initiationResponse) (string, error) {
	if resp.ConversationID == "" {
		return "", errors.New("daraja accepted the request without a ConversationID")
	}
	return resp.ConversationID, nil
}
