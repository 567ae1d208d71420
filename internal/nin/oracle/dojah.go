package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultDojahTimeout = 15 * time.Second
	dojahNINPath        = "/api/v1/kyc/nin"
	maxResponseBytes    = 1 << 20
)

// DojahConfig configures the Dojah KYC adapter.
type DojahConfig struct {
	BaseURL   string
	AppID     string
	SecretKey string
	Timeout   time.Duration
}

// Dojah looks a NIN up through Dojah's KYC API and compares the returned
// identity against the claim.
type Dojah struct {
	cfg    DojahConfig
	client *http.Client
}

func NewDojah(cfg DojahConfig) *Dojah {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultDojahTimeout
	}
	return &Dojah{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

type dojahResponse struct {
	Entity *dojahEntity `json:"entity"`
	Error  string       `json:"error"`
}

type dojahEntity struct {
	Identity
	NIN string `json:"nin"`
}

func (d *Dojah) Verify(ctx context.Context, claim Claim) (*Result, error) {
	endpoint := strings.TrimRight(d.cfg.BaseURL, "/") + dojahNINPath + "?" + url.Values{"nin": {claim.NIN}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build dojah request: %w", err)
	}
	req.Header.Set("AppId", d.cfg.AppID)
	req.Header.Set("Authorization", d.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dojah request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read dojah response: %w", err)
	}
	reference := resp.Header.Get("X-Request-Id")
	if reference == "" {
		reference = "dojah-" + uuid.NewString()
	}

	var parsed dojahResponse
	jsonErr := json.Unmarshal(body, &parsed)

	switch {
	case resp.StatusCode == http.StatusOK:
		if jsonErr != nil || parsed.Entity == nil {
			return &Result{Success: false, Error: "unparseable provider response", Reference: reference}, nil
		}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &StatusError{StatusCode: resp.StatusCode}
	case jsonErr == nil && parsed.Error != "":
		return &Result{Success: false, Error: parsed.Error, Reference: reference}, nil
	case resp.StatusCode == http.StatusNotFound:
		return &Result{Success: false, Error: "NIN not found", Reference: reference}, nil
	default:
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	identity := parsed.Entity.Identity
	if field := mismatch(claim, identity); field != "" {
		return &Result{
			Success:   false,
			Data:      &identity,
			Error:     "data mismatch on " + field,
			Reference: reference,
		}, nil
	}
	return &Result{Success: true, Data: &identity, Reference: reference}, nil
}

// mismatch returns the first claim field the provider record disagrees with.
func mismatch(claim Claim, got Identity) string {
	if !strings.EqualFold(strings.TrimSpace(claim.FirstName), strings.TrimSpace(got.FirstName)) {
		return "first_name"
	}
	if !strings.EqualFold(strings.TrimSpace(claim.LastName), strings.TrimSpace(got.LastName)) {
		return "last_name"
	}
	if got.DateOfBirth != "" && !sameDate(claim.DateOfBirth, got.DateOfBirth) {
		return "date_of_birth"
	}
	return ""
}

// sameDate compares a YYYY-MM-DD claim with the provider's date, which may
// carry a time component or use DD-MM-YYYY.
func sameDate(claim, provider string) bool {
	want, err := time.Parse("2006-01-02", claim)
	if err != nil {
		return false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "02-01-2006", "02/01/2006"} {
		if got, err := time.Parse(layout, provider); err == nil {
			return got.Year() == want.Year() && got.Month() == want.Month() && got.Day() == want.Day()
		}
	}
	return false
}
