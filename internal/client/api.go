package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"registration-bot/internal/booking"
)

const (
	// codeOK is the service's success code for login, listing and the
	// SMS trigger.
	codeOK = 200
	// codeConfirmed is the success code of the confirmation endpoint,
	// which uses a different convention than the rest of the API.
	codeConfirmed = 1
)

// envelope models the service's JSON response wrapper.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (e *envelope) slots() ([]booking.Slot, error) {
	if len(e.Data) == 0 {
		return nil, nil
	}
	var slots []booking.Slot
	if err := json.Unmarshal(e.Data, &slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slot list: %w", err)
	}
	return slots, nil
}

// BusinessError is a well-formed service decline: the request was
// understood but refused (slot taken, code invalid, ...).
type BusinessError struct {
	Code int
	Msg  string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("service declined (code %d): %s", e.Code, e.Msg)
}

// postEnvelope posts a form and decodes the JSON envelope.
func (c *Client) postEnvelope(ctx context.Context, rawURL string, form url.Values) (*envelope, error) {
	data, err := c.do(ctx, http.MethodPost, rawURL, form)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service response: %w", err)
	}
	return &env, nil
}
