// Package client talks to the scheduling service. One Client owns one
// authenticated browser-like session: a cookie jar plus a rolling referer,
// where each request carries the resolved URL of the previous response.
package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"registration-bot/config"
	"registration-bot/internal/booking"
)

const (
	loginPath       = "/quicklogin.htm"
	partDutyPath    = "/dpt/partduty.htm"
	sendOrderPath   = "/v/sendorder.htm"
	confirmPath     = "/order/confirmV1.htm"
	appointPath     = "/dpt/appoint/%s-%s.htm"
	patientFormPath = "/order/confirm/%s-%s-%d-%d.htm"
)

// Client is the session-carrying HTTP client for the scheduling service.
// Not safe for concurrent use; the run drives it strictly sequentially.
type Client struct {
	domain  string
	headers map[string]string
	http    *http.Client
	referer string
	logger  *zap.Logger
}

// New creates a Client with a fresh cookie jar.
func New(cfg config.ServiceConfig, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		domain:  strings.TrimRight(cfg.Domain, "/"),
		headers: cfg.Headers,
		http: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// do issues one request with the session headers and referer, reads the
// body, and rolls the referer forward to the response's resolved URL.
func (c *Client) do(ctx context.Context, method, rawURL string, form url.Values) ([]byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}
	c.referer = resp.Request.URL.String()

	c.logger.Debug("service response",
		zap.String("url", rawURL),
		zap.ByteString("body", data))
	return data, nil
}

// Login authenticates the session. The service expects the mobile number
// and password base64-encoded in transit. A nil error means the session is
// authenticated; a service decline carries the service's message.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"mobileNo": {base64.StdEncoding.EncodeToString([]byte(username))},
		"password": {base64.StdEncoding.EncodeToString([]byte(password))},
		"yzm":      {""},
		"isAjax":   {"true"},
	}
	env, err := c.postEnvelope(ctx, c.domain+loginPath, form)
	if err != nil {
		return err
	}
	if env.Code != codeOK {
		return fmt.Errorf("login rejected: %s", env.Msg)
	}
	return nil
}

// ListSlots fetches the candidate slots for one half-day session. An empty
// sequence means the quota is not yet published (or already cleared by the
// service); only transport and decode failures return an error.
func (c *Client) ListSlots(ctx context.Context, hospitalID, departmentID, dutyCode, dutyDate string) ([]booking.Slot, error) {
	form := url.Values{
		"hospitalId":   {hospitalID},
		"departmentId": {departmentID},
		"dutyCode":     {dutyCode},
		"dutyDate":     {dutyDate},
		"isAjax":       {"true"},
	}
	env, err := c.postEnvelope(ctx, c.domain+partDutyPath, form)
	if err != nil {
		return nil, err
	}
	if env.Code != codeOK {
		c.logger.Debug("slot listing not available",
			zap.Int("code", env.Code),
			zap.String("msg", env.Msg))
		return nil, nil
	}
	slots, err := env.slots()
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// AppointmentPage fetches the department's appointment-info page, which
// publishes the release schedule.
func (c *Client) AppointmentPage(ctx context.Context, hospitalID, departmentID string) (string, error) {
	u := c.domain + fmt.Sprintf(appointPath, hospitalID, departmentID)
	data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ConfirmationPage fetches the patient confirmation page for a chosen slot.
func (c *Client) ConfirmationPage(ctx context.Context, hospitalID, departmentID string, doctorID, dutySourceID int64) (string, error) {
	u := c.domain + fmt.Sprintf(patientFormPath, hospitalID, departmentID, doctorID, dutySourceID)
	data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TriggerSMSCode asks the service to text a verification code to the
// logged-in account's phone.
func (c *Client) TriggerSMSCode(ctx context.Context) error {
	env, err := c.postEnvelope(ctx, c.domain+sendOrderPath, url.Values{})
	if err != nil {
		return err
	}
	if env.Code != codeOK {
		return fmt.Errorf("sms trigger rejected: %s", env.Msg)
	}
	return nil
}

// ConfirmationRequest carries everything the confirmation endpoint needs.
type ConfirmationRequest struct {
	HospitalID     string
	DepartmentID   string
	DoctorID       int64
	DutySourceID   int64
	PatientID      string
	MedicareCardID string
	SMSCode        string
}

// SubmitConfirmation submits the final reservation. nil means the slot is
// secured; a *BusinessError means the service understood and declined.
func (c *Client) SubmitConfirmation(ctx context.Context, req ConfirmationRequest) error {
	reimbursementType := "10"
	if req.MedicareCardID != "" {
		reimbursementType = "1"
	}
	form := url.Values{
		"dutySourceId":      {strconv.FormatInt(req.DutySourceID, 10)},
		"hospitalId":        {req.HospitalID},
		"departmentId":      {req.DepartmentID},
		"doctorId":          {strconv.FormatInt(req.DoctorID, 10)},
		"patientId":         {req.PatientID},
		"hospitalCardId":    {""},
		"medicareCardId":    {req.MedicareCardID},
		"reimbursementType": {reimbursementType},
		"smsVerifyCode":     {req.SMSCode},
		"childrenBirthday":  {""},
		"isAjax":            {"true"},
	}
	env, err := c.postEnvelope(ctx, c.domain+confirmPath, form)
	if err != nil {
		return err
	}
	if env.Code != codeConfirmed {
		return &BusinessError{Code: env.Code, Msg: env.Msg}
	}
	return nil
}
