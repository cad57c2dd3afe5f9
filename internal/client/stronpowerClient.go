package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"token-vending-service/internal/model"

	"github.com/shopspring/decimal"
)

// VendOutcome discriminates what the provider answered.
type VendOutcome int

const (
	// VendOK means a non-empty token came back.
	VendOK VendOutcome = iota
	// VendEmptyToken is a well-formed answer carrying an empty or null token.
	VendEmptyToken
	// VendMalformed is a 2xx answer that is not a non-empty JSON array.
	VendMalformed
	// VendProviderError is a non-2xx answer.
	VendProviderError
)

func (o VendOutcome) String() string {
	switch o {
	case VendOK:
		return "ok"
	case VendEmptyToken:
		return "empty_token"
	case VendMalformed:
		return "malformed"
	case VendProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

type VendResult struct {
	Outcome    VendOutcome
	Token      string
	StatusCode int
	// Message is the provider's error text for VendProviderError and the
	// parse failure reason for VendMalformed.
	Message string
	// Preview is a truncated copy of an unparseable body.
	Preview string
	// Raw is the first array element for VendOK/VendEmptyToken.
	Raw json.RawMessage
}

type StronpowerClient interface {
	// VendingMeter returns an error only when the provider could not be
	// reached; every answer it did give is reported through VendResult.
	VendingMeter(ctx context.Context, creds *model.StronpowerCredentials, meterID string, amount decimal.Decimal) (*VendResult, error)
}

type stronpowerClientImpl struct {
	httpClient *http.Client
}

type stronpowerVendRequest struct {
	CompanyName  string `json:"CompanyName"`
	UserName     string `json:"UserName"`
	PassWord     string `json:"PassWord"`
	MeterID      string `json:"MeterID"`
	IsVendByUnit string `json:"is_vend_by_unit"`
	Amount       string `json:"Amount"`
}

func NewStronpowerClient(timeout time.Duration) StronpowerClient {
	return &stronpowerClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *stronpowerClientImpl) VendingMeter(ctx context.Context, creds *model.StronpowerCredentials, meterID string, amount decimal.Decimal) (*VendResult, error) {
	payload := stronpowerVendRequest{
		CompanyName: creds.CompanyName,
		UserName:    creds.Username,
		PassWord:    creds.Password,
		MeterID:     meterID,
		// the provider only accepts string-typed flags
		IsVendByUnit: "false",
		Amount:       amount.String(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.ApiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stronpower request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read stronpower response: %w", err)
	}

	return parseVendResponse(resp.StatusCode, respBody), nil
}

func parseVendResponse(statusCode int, body []byte) *VendResult {
	if statusCode < 200 || statusCode >= 300 {
		return &VendResult{
			Outcome:    VendProviderError,
			StatusCode: statusCode,
			Message:    extractErrorMessage(statusCode, body),
		}
	}

	malformed := func(reason string) *VendResult {
		return &VendResult{
			Outcome:    VendMalformed,
			StatusCode: statusCode,
			Message:    reason,
			Preview:    truncate(string(body)),
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return malformed("empty response body")
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		if json.Valid(body) {
			return malformed("response is not an array of vend records")
		}
		return malformed("response is not valid JSON")
	}
	if len(items) == 0 || items[0] == nil {
		return malformed("response array is empty")
	}

	first := items[0]
	rawFirst, _ := json.Marshal(first)

	rawToken, ok := first["Token"]
	if !ok {
		return malformed("first vend record has no Token field")
	}

	token := tokenText(rawToken)
	if token == "" {
		return &VendResult{Outcome: VendEmptyToken, StatusCode: statusCode, Raw: rawFirst}
	}

	return &VendResult{Outcome: VendOK, Token: token, StatusCode: statusCode, Raw: rawFirst}
}

// tokenText accepts a JSON string or a bare number; null yields "".
func tokenText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}
