package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"token-vending-service/internal/config"

	"github.com/shopspring/decimal"
)

const ipaymuTimestampLayout = "20060102150405"

type IpaymuClient interface {
	CreateRedirectPayment(ctx context.Context, req *IpaymuPaymentRequest) (*IpaymuPaymentResponse, error)
	// CheckTransaction asks iPaymu for the current state of a transaction.
	CheckTransaction(ctx context.Context, trxID string) (*IpaymuTransaction, error)
}

type ipaymuClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	va         string
	apiKey     string
	now        func() time.Time
}

type IpaymuPaymentRequest struct {
	Product     []string `json:"product"`
	Qty         []string `json:"qty"`
	Price       []string `json:"price"`
	ReturnURL   string   `json:"returnUrl"`
	CancelURL   string   `json:"cancelUrl"`
	NotifyURL   string   `json:"notifyUrl"`
	ReferenceID string   `json:"referenceId"`
	BuyerName   string   `json:"buyerName"`
	BuyerEmail  string   `json:"buyerEmail"`
	BuyerPhone  string   `json:"buyerPhone"`
}

type IpaymuPaymentResponse struct {
	SessionID string
	URL       string
	Raw       json.RawMessage
}

// IpaymuTransaction is the status check answer. Status 1 is paid,
// 0 pending and -2 expired.
type IpaymuTransaction struct {
	TransactionID json.Number     `json:"TransactionId"`
	SessionID     string          `json:"SessionId"`
	ReferenceID   string          `json:"ReferenceId"`
	Status        int             `json:"Status"`
	StatusDesc    string          `json:"StatusDesc"`
	Amount        decimal.Decimal `json:"Amount"`
}

type ipaymuEnvelope struct {
	Status  int             `json:"Status"`
	Success bool            `json:"Success"`
	Message string          `json:"Message"`
	Data    json.RawMessage `json:"Data"`
}

type ipaymuPaymentData struct {
	SessionID string `json:"SessionID"`
	Url       string `json:"Url"`
}

type ipaymuCheckRequest struct {
	TransactionID string `json:"transactionId"`
}

func NewIpaymuClient(cfg *config.Ipaymu) IpaymuClient {
	return &ipaymuClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: cfg.BaseApiURL,
		va:         cfg.VA,
		apiKey:     cfg.ApiKey,
		now:        time.Now,
	}
}

// IpaymuSignature signs a request body the way iPaymu v2 verifies it:
// HMAC-SHA256 keyed by the api key over
// "<METHOD>:<va>:<lower hex sha256(body)>:<api key>".
func IpaymuSignature(method, va string, body []byte, apiKey string) string {
	bodyHash := sha256.Sum256(body)
	stringToSign := strings.ToUpper(method) + ":" + va + ":" + strings.ToLower(hex.EncodeToString(bodyHash[:])) + ":" + apiKey

	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(stringToSign))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *ipaymuClientImpl) CreateRedirectPayment(ctx context.Context, payReq *IpaymuPaymentRequest) (*IpaymuPaymentResponse, error) {
	envelope, respBody, err := c.post(ctx, "/api/v2/payment", payReq)
	if err != nil {
		return nil, err
	}

	var data ipaymuPaymentData
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, &MalformedResponseError{Provider: "ipaymu", Reason: err.Error(), Preview: truncate(string(respBody))}
		}
	}
	if data.Url == "" {
		return nil, &MalformedResponseError{Provider: "ipaymu", Reason: "missing payment url", Preview: truncate(string(respBody))}
	}

	return &IpaymuPaymentResponse{
		SessionID: data.SessionID,
		URL:       data.Url,
		Raw:       respBody,
	}, nil
}

func (c *ipaymuClientImpl) CheckTransaction(ctx context.Context, trxID string) (*IpaymuTransaction, error) {
	envelope, respBody, err := c.post(ctx, "/api/v2/transaction", &ipaymuCheckRequest{TransactionID: trxID})
	if err != nil {
		return nil, err
	}

	var trx IpaymuTransaction
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, &MalformedResponseError{Provider: "ipaymu", Reason: "missing transaction data", Preview: truncate(string(respBody))}
	}
	if err := json.Unmarshal(envelope.Data, &trx); err != nil {
		return nil, &MalformedResponseError{Provider: "ipaymu", Reason: err.Error(), Preview: truncate(string(respBody))}
	}

	return &trx, nil
}

// post sends a signed v2 request and unwraps the response envelope.
func (c *ipaymuClientImpl) post(ctx context.Context, path string, payload interface{}) (*ipaymuEnvelope, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("va", c.va)
	req.Header.Set("signature", IpaymuSignature(http.MethodPost, c.va, body, c.apiKey))
	req.Header.Set("timestamp", c.now().Format(ipaymuTimestampLayout))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("ipaymu request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read ipaymu response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &APIError{
			Provider:   "ipaymu",
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(resp.StatusCode, respBody),
		}
	}

	var envelope ipaymuEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, nil, &MalformedResponseError{Provider: "ipaymu", Reason: err.Error(), Preview: truncate(string(respBody))}
	}

	// iPaymu sometimes answers 200 with Status != 200 in the envelope
	if envelope.Status != 0 && envelope.Status != http.StatusOK {
		return nil, nil, &APIError{Provider: "ipaymu", StatusCode: envelope.Status, Message: extractErrorMessage(envelope.Status, respBody)}
	}

	return &envelope, respBody, nil
}
