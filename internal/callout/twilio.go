package callout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrCallFailed wraps any telephony-provider failure.
var ErrCallFailed = errors.New("call placement failed")

const technicianTwiML = `<Response><Say>Connecting you to a technician.</Say></Response>`

// Caller places outbound voice calls to connect a customer with a technician.
type Caller interface {
	PlaceCall(ctx context.Context, toPhone string) (callSID string, err error)
}

// TwilioConfig carries the provider credentials. An explicit struct passed at
// construction; no package-level client state.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string // overridable for tests
}

// TwilioCaller issues call requests against the Twilio REST API.
type TwilioCaller struct {
	cfg        TwilioConfig
	httpClient *http.Client
}

func NewTwilioCaller(cfg TwilioConfig) *TwilioCaller {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	return &TwilioCaller{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// PlaceCall dials the customer and plays the technician-connect message,
// returning the provider call SID.
func (c *TwilioCaller) PlaceCall(ctx context.Context, toPhone string) (string, error) {
	toPhone = strings.TrimSpace(toPhone)
	if toPhone == "" {
		return "", errors.New("phone number is required")
	}

	form := url.Values{}
	form.Set("To", toPhone)
	form.Set("From", c.cfg.FromNumber)
	form.Set("Twiml", technicianTwiML)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrCallFailed, err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: provider returned status %d", ErrCallFailed, resp.StatusCode)
	}

	var body struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrCallFailed, err)
	}
	if body.SID == "" {
		return "", fmt.Errorf("%w: missing call sid in response", ErrCallFailed)
	}
	return body.SID, nil
}

var _ Caller = (*TwilioCaller)(nil)
