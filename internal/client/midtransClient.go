package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"token-vending-service/internal/config"
)

type MidtransClient interface {
	CreateSnapTransaction(ctx context.Context, req *SnapRequest) (*SnapResponse, error)
	ServerKey() string
}

type midtransClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	serverKey  string
}

type SnapTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type SnapItem struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type SnapCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type SnapCallbacks struct {
	Finish string `json:"finish,omitempty"`
}

type SnapRequest struct {
	TransactionDetails SnapTransactionDetails `json:"transaction_details"`
	ItemDetails        []SnapItem             `json:"item_details,omitempty"`
	CustomerDetails    SnapCustomer           `json:"customer_details"`
	Callbacks          *SnapCallbacks         `json:"callbacks,omitempty"`
}

type SnapResponse struct {
	Token       string          `json:"token"`
	RedirectURL string          `json:"redirect_url"`
	Raw         json.RawMessage `json:"-"`
}

func NewMidtransClient(cfg *config.Midtrans) MidtransClient {
	return &midtransClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: cfg.BaseApiURL,
		serverKey:  cfg.ServerKey,
	}
}

func (c *midtransClientImpl) ServerKey() string {
	return c.serverKey
}

func (c *midtransClientImpl) authHeader() string {
	// Snap expects the server key as the basic-auth username with an empty password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.serverKey+":"))
}

func (c *midtransClientImpl) CreateSnapTransaction(ctx context.Context, snapReq *SnapRequest) (*SnapResponse, error) {
	body, err := json.Marshal(snapReq)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/snap/v1/transactions",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("midtrans request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read midtrans response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Provider:   "midtrans",
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(resp.StatusCode, respBody),
		}
	}

	var result SnapResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &MalformedResponseError{Provider: "midtrans", Reason: err.Error(), Preview: truncate(string(respBody))}
	}
	if result.Token == "" {
		return nil, &MalformedResponseError{Provider: "midtrans", Reason: "missing snap token", Preview: truncate(string(respBody))}
	}
	result.Raw = respBody

	return &result, nil
}
