package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const previewLimit = 200

// APIError is a non-2xx answer from a gateway or provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// MalformedResponseError is a 2xx answer whose body could not be understood.
type MalformedResponseError struct {
	Provider string
	Reason   string
	Preview  string
}

func (e *MalformedResponseError) Error() string {
	if e.Preview == "" {
		return fmt.Sprintf("%s returned an unexpected response: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s returned an unexpected response: %s (body: %s)", e.Provider, e.Reason, e.Preview)
}

var errorMessageFields = []string{
	"message", "Message", "error", "Error", "error_description", "errorMessage", "msg",
}

// extractErrorMessage pulls a human readable message out of an error body.
// Providers disagree on the field name, so several are tried in order.
func extractErrorMessage(statusCode int, body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, field := range errorMessageFields {
			raw, ok := obj[field]
			if !ok {
				continue
			}
			if msg := rawToText(raw); msg != "" {
				return msg
			}
		}
		if raw, ok := obj["error_messages"]; ok {
			var msgs []string
			if json.Unmarshal(raw, &msgs) == nil && len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	if preview := truncate(string(body)); preview != "" {
		return preview
	}
	return http.StatusText(statusCode)
}

func rawToText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// nested objects such as {"error": {"message": "..."}}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		for _, field := range errorMessageFields {
			if v, ok := nested[field]; ok {
				if msg := rawToText(v); msg != "" {
					return msg
				}
			}
		}
	}
	return ""
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= previewLimit {
		return s
	}
	return string(r[:previewLimit]) + "..."
}
