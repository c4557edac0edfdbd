// Package smscode obtains the one-time verification code that finalizes a
// reservation, either from the operator or from a REST SMS gateway.
package smscode

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"registration-bot/internal/clock"
)

var codeRe = regexp.MustCompile(`\d{6}`)

// Acquirer fetches one verification code attempt. An empty code with a nil
// error means nothing usable was available; the caller retries.
type Acquirer interface {
	Fetch(ctx context.Context) (string, error)
}

// Interactive blocks on the operator typing the code.
type Interactive struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractive creates an Interactive acquirer over the given streams.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{in: bufio.NewReader(in), out: out}
}

// Fetch implements Acquirer.
func (a *Interactive) Fetch(ctx context.Context) (string, error) {
	fmt.Fprint(a.out, "enter the SMS verification code: ")
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read code: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Relay polls a REST SMS gateway for recently delivered messages and
// extracts the code from the first qualifying one. A code is qualified when
// the message arrived within the recency window and its body carries both
// the service-name marker and the code marker. Codes already handed out are
// suppressed so a rejected code is never resubmitted.
type Relay struct {
	url           string
	http          *http.Client
	clock         clock.Clock
	serviceMarker string
	codeMarker    string
	recency       time.Duration
	seen          *cache.Cache
	logger        *zap.Logger
}

// seenTTL comfortably outlives any code's validity window.
const seenTTL = 10 * time.Minute

// NewRelay creates a Relay acquirer against the gateway at addr (host:port
// or full URL).
func NewRelay(addr string, serviceMarker, codeMarker string, recency time.Duration, c clock.Clock, logger *zap.Logger) *Relay {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Relay{
		url:           strings.TrimRight(addr, "/") + "/v1/sms/",
		http:          &http.Client{Timeout: 10 * time.Second},
		clock:         c,
		serviceMarker: serviceMarker,
		codeMarker:    codeMarker,
		recency:       recency,
		seen:          cache.New(seenTTL, seenTTL),
		logger:        logger,
	}
}

type relayMessage struct {
	Body       string `json:"body"`
	Timestamps struct {
		// Delivery is a unix timestamp in milliseconds.
		Delivery int64 `json:"delivery"`
	} `json:"timestamps"`
}

type relayResponse struct {
	Messages []relayMessage `json:"messages"`
}

// Fetch implements Acquirer.
func (a *Relay) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create relay request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	var body relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode relay response: %w", err)
	}

	now := a.clock.Now()
	for _, msg := range body.Messages {
		delivered := time.UnixMilli(msg.Timestamps.Delivery)
		if now.Sub(delivered) > a.recency {
			continue
		}
		if !strings.Contains(msg.Body, a.serviceMarker) || !strings.Contains(msg.Body, a.codeMarker) {
			continue
		}
		code := codeRe.FindString(msg.Body)
		if code == "" {
			continue
		}
		if _, used := a.seen.Get(code); used {
			a.logger.Debug("skipping already used code", zap.String("code", code))
			continue
		}
		a.seen.SetDefault(code, struct{}{})
		return code, nil
	}
	return "", nil
}
