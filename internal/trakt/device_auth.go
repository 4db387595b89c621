package trakt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/providers"
	"tlsync/internal/structures"

	json "github.com/goccy/go-json"
)

// FlowState tracks the device-code handshake:
// Started → Pending → {Authorized, Denied, Expired}. Only Authorized
// writes a credential.
type FlowState string

const (
	FlowStarted    FlowState = "started"
	FlowPending    FlowState = "pending"
	FlowAuthorized FlowState = "authorized"
	FlowDenied     FlowState = "denied"
	FlowExpired    FlowState = "expired"
)

// DeviceCode is the opaque flow handle returned by Start. UserCode is the
// PIN the user enters at VerificationURL.
type DeviceCode struct {
	DeviceCode      string    `json:"device_code"`
	UserCode        string    `json:"user_code"`
	VerificationURL string    `json:"verification_url"`
	ExpiresIn       int       `json:"expires_in"`
	Interval        int       `json:"interval"`
	IssuedAt        time.Time `json:"-"`
	State           FlowState `json:"-"`
}

type AuthFlowInterface interface {
	Start(ctx context.Context) (*DeviceCode, error)
	Complete(ctx context.Context, dc *DeviceCode) error
}

// CredentialWriter is satisfied by *TokenStore.
type CredentialWriter interface {
	Store(cred models.Credential) error
}

type DeviceAuth struct {
	conf   *structures.Config
	tokens CredentialWriter
	logger providers.Logger
	client *http.Client

	// injected for tests to avoid wall-clock waits
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDeviceAuth(conf *structures.Config, tokens *TokenStore, logger providers.Logger) AuthFlowInterface {
	return &DeviceAuth{
		conf:   conf,
		tokens: tokens,
		logger: logger,
		client: &http.Client{Timeout: conf.Trakt.Timeout},
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start requests a device code and verification URL.
func (da *DeviceAuth) Start(ctx context.Context) (*DeviceCode, error) {
	body, err := json.Marshal(map[string]string{"client_id": da.conf.Trakt.ClientID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, da.conf.Trakt.BaseURL+"/oauth/device/code", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := da.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device code request: %w: %v", models.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device code request: status %d: %w", resp.StatusCode, models.ErrSourceUnavailable)
	}

	dc := &DeviceCode{}
	if err := json.NewDecoder(resp.Body).Decode(dc); err != nil {
		return nil, fmt.Errorf("device code request: decode response: %w", err)
	}
	dc.IssuedAt = da.now()
	dc.State = FlowStarted

	da.logger.Infof(providers.TypeAuth, "Device flow started, PIN %s at %s (expires in %ds)",
		dc.UserCode, dc.VerificationURL, dc.ExpiresIn)
	return dc, nil
}

// Complete polls the token endpoint until the user authorizes the PIN, a
// terminal error occurs, the code expires, or ctx is cancelled.
func (da *DeviceAuth) Complete(ctx context.Context, dc *DeviceCode) error {
	deadline := dc.IssuedAt.Add(time.Duration(dc.ExpiresIn) * time.Second)
	interval := time.Duration(max(dc.Interval, 1)) * time.Second
	dc.State = FlowPending

	for {
		if !da.now().Before(deadline) {
			dc.State = FlowExpired
			return models.ErrAuthExpired
		}
		if err := da.sleep(ctx, interval); err != nil {
			return err
		}

		status, tok, err := da.poll(ctx, dc.DeviceCode)
		if err != nil {
			return err
		}

		switch status {
		case http.StatusOK:
			cred := tok.credential(da.now())
			if err := da.tokens.Store(cred); err != nil {
				return err
			}
			dc.State = FlowAuthorized
			da.logger.Infof(providers.TypeAuth, "Device flow authorized: %s", cred.Redacted())
			return nil
		case http.StatusBadRequest:
			// pending, keep polling
		case http.StatusGone:
			dc.State = FlowExpired
			return models.ErrAuthExpired
		case http.StatusTeapot:
			dc.State = FlowDenied
			return models.ErrAuthDenied
		case http.StatusConflict:
			// code already approved, next poll returns the token
		case http.StatusTooManyRequests:
			interval += time.Second
		default:
			return fmt.Errorf("device token poll: unexpected status %d", status)
		}
	}
}

func (da *DeviceAuth) poll(ctx context.Context, code string) (int, tokenResponse, error) {
	body, err := json.Marshal(map[string]string{
		"code":          code,
		"client_id":     da.conf.Trakt.ClientID,
		"client_secret": da.conf.Trakt.ClientSecret,
	})
	if err != nil {
		return 0, tokenResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, da.conf.Trakt.BaseURL+"/oauth/device/token", bytes.NewReader(body))
	if err != nil {
		return 0, tokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := da.client.Do(req)
	if err != nil {
		return 0, tokenResponse{}, fmt.Errorf("device token poll: %w: %v", models.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	var tok tokenResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
			return 0, tokenResponse{}, fmt.Errorf("device token poll: decode response: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, tok, nil
}
