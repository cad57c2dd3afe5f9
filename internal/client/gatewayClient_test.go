package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"token-vending-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIpaymuSignature(t *testing.T) {
	body := []byte(`{"referenceId":"TKN-1"}`)
	bodyHash := sha256.Sum256(body)
	stringToSign := "POST:0000001234:" + hex.EncodeToString(bodyHash[:]) + ":apikey"
	mac := hmac.New(sha256.New, []byte("apikey"))
	mac.Write([]byte(stringToSign))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, IpaymuSignature("post", "0000001234", body, "apikey"))
}

func TestIpaymuCreateRedirectPayment(t *testing.T) {
	var rawBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/payment", r.URL.Path)
		rawBody, _ = io.ReadAll(r.Body)

		assert.Equal(t, "0000001234", r.Header.Get("va"))
		assert.Equal(t, IpaymuSignature(http.MethodPost, "0000001234", rawBody, "apikey"), r.Header.Get("signature"))
		assert.Equal(t, "20260301093000", r.Header.Get("timestamp"))

		w.Write([]byte(`{"Status":200,"Success":true,"Message":"success","Data":{"SessionID":"sess-1","Url":"https://sandbox.ipaymu.com/payment/sess-1"}}`))
	}))
	defer srv.Close()

	c := NewIpaymuClient(&config.Ipaymu{BaseApiURL: srv.URL, VA: "0000001234", ApiKey: "apikey"}).(*ipaymuClientImpl)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	resp, err := c.CreateRedirectPayment(context.Background(), &IpaymuPaymentRequest{
		Product:     []string{"Token Listrik"},
		Qty:         []string{"1"},
		Price:       []string{"50000"},
		ReferenceID: "TKN-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "https://sandbox.ipaymu.com/payment/sess-1", resp.URL)

	var sent IpaymuPaymentRequest
	require.NoError(t, json.Unmarshal(rawBody, &sent))
	assert.Equal(t, "TKN-1", sent.ReferenceID)
}

func TestIpaymuCreateRedirectPayment_EnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":401,"Success":false,"Message":"unauthorized signature"}`))
	}))
	defer srv.Close()

	c := NewIpaymuClient(&config.Ipaymu{BaseApiURL: srv.URL, VA: "va", ApiKey: "key"})

	_, err := c.CreateRedirectPayment(context.Background(), &IpaymuPaymentRequest{ReferenceID: "TKN-2"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "unauthorized signature", apiErr.Message)
}

func TestIpaymuCreateRedirectPayment_MissingURLIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":200,"Data":{}}`))
	}))
	defer srv.Close()

	c := NewIpaymuClient(&config.Ipaymu{BaseApiURL: srv.URL})

	_, err := c.CreateRedirectPayment(context.Background(), &IpaymuPaymentRequest{})

	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "missing payment url", malformed.Reason)
}

func TestIpaymuCheckTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/transaction", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"transactionId":"77001"}`, string(body))
		assert.Equal(t, IpaymuSignature(http.MethodPost, "0000001234", body, "apikey"), r.Header.Get("signature"))

		w.Write([]byte(`{"Status":200,"Success":true,"Message":"success","Data":{"TransactionId":77001,"SessionId":"sess-1","ReferenceId":"TKN-1","Status":1,"StatusDesc":"Berhasil","Amount":51500}}`))
	}))
	defer srv.Close()

	c := NewIpaymuClient(&config.Ipaymu{BaseApiURL: srv.URL, VA: "0000001234", ApiKey: "apikey"})

	trx, err := c.CheckTransaction(context.Background(), "77001")

	require.NoError(t, err)
	assert.Equal(t, "77001", trx.TransactionID.String())
	assert.Equal(t, "TKN-1", trx.ReferenceID)
	assert.Equal(t, "sess-1", trx.SessionID)
	assert.Equal(t, 1, trx.Status)
	assert.Equal(t, "51500", trx.Amount.String())
}

func TestIpaymuCheckTransaction_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":404,"Success":false,"Message":"transaction not found","Data":null}`))
	}))
	defer srv.Close()

	c := NewIpaymuClient(&config.Ipaymu{BaseApiURL: srv.URL})

	_, err := c.CheckTransaction(context.Background(), "1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestIpaymuCheckTransaction_MissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":200,"Success":true,"Data":null}`))
	}))
	defer srv.Close()

	c := NewIpaymuClient(&config.Ipaymu{BaseApiURL: srv.URL})

	_, err := c.CheckTransaction(context.Background(), "1")

	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "missing transaction data", malformed.Reason)
}

func TestMidtransCreateSnapTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snap/v1/transactions", r.URL.Path)
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("SB-Mid-server-key:"))
		assert.Equal(t, wantAuth, r.Header.Get("Authorization"))

		var req SnapRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "TKN-1", req.TransactionDetails.OrderID)
		assert.EqualValues(t, 51500, req.TransactionDetails.GrossAmount)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"snap-1","redirect_url":"https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-1"}`))
	}))
	defer srv.Close()

	c := NewMidtransClient(&config.Midtrans{BaseApiURL: srv.URL, ServerKey: "SB-Mid-server-key"})

	resp, err := c.CreateSnapTransaction(context.Background(), &SnapRequest{
		TransactionDetails: SnapTransactionDetails{OrderID: "TKN-1", GrossAmount: 51500},
	})

	require.NoError(t, err)
	assert.Equal(t, "snap-1", resp.Token)
	assert.Contains(t, resp.RedirectURL, "snap-1")
	assert.NotEmpty(t, resp.Raw)
}

func TestMidtransCreateSnapTransaction_ErrorMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_messages":["transaction_details.gross_amount is not equal to the sum of item_details"]}`))
	}))
	defer srv.Close()

	c := NewMidtransClient(&config.Midtrans{BaseApiURL: srv.URL, ServerKey: "key"})

	_, err := c.CreateSnapTransaction(context.Background(), &SnapRequest{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "not equal to the sum")
}
