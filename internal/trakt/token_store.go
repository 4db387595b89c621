package trakt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/providers"
	"tlsync/internal/structures"

	json "github.com/goccy/go-json"
)

// expiryLeeway is subtracted from the token lifetime so a credential that
// is about to lapse mid-run is refreshed up front.
const expiryLeeway = 30 * time.Second

const redirectURI = "urn:ietf:wg:oauth:2.0:oob"

// tokenResponse is the OAuth token endpoint payload, shared by the refresh
// grant and the device-code grant.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

func (t tokenResponse) credential(now time.Time) models.Credential {
	issued := now
	if t.CreatedAt > 0 {
		issued = time.Unix(t.CreatedAt, 0)
	}
	return models.Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    issued.Add(time.Duration(t.ExpiresIn) * time.Second),
	}
}

// TokenStore owns the single persisted credential slot. Reads refresh the
// credential transparently when it has expired and a refresh token exists.
type TokenStore struct {
	conf   *structures.Config
	logger providers.Logger
	client *http.Client
	mu     sync.Mutex
	now    func() time.Time
}

func NewTokenStore(conf *structures.Config, logger providers.Logger) *TokenStore {
	return &TokenStore{
		conf:   conf,
		logger: logger,
		client: &http.Client{Timeout: conf.Trakt.Timeout},
		now:    time.Now,
	}
}

// Credential returns a credential whose expiry is in the future.
// models.ErrUnauthenticated when the slot is empty,
// models.ErrAuthRefreshFailed when the refresh grant is rejected.
func (ts *TokenStore) Credential(ctx context.Context) (models.Credential, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	cred, found, err := ts.load()
	if err != nil {
		return models.Credential{}, err
	}
	if !found {
		return models.Credential{}, models.ErrUnauthenticated
	}
	if cred.Valid(ts.now().Add(expiryLeeway)) {
		return cred, nil
	}
	if cred.RefreshToken == "" {
		return models.Credential{}, fmt.Errorf("credential expired without refresh token: %w", models.ErrAuthRefreshFailed)
	}

	refreshed, err := ts.refresh(ctx, cred)
	if err != nil {
		return models.Credential{}, err
	}
	if err := ts.persist(refreshed); err != nil {
		return models.Credential{}, err
	}
	ts.logger.Infof(providers.TypeAuth, "Credential refreshed: %s", refreshed.Redacted())
	return refreshed, nil
}

// Store persists a freshly granted credential. Called by the device-auth
// flow on authorization.
func (ts *TokenStore) Store(cred models.Credential) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.persist(cred)
}

func (ts *TokenStore) load() (models.Credential, bool, error) {
	data, err := os.ReadFile(ts.conf.Trakt.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Credential{}, false, nil
		}
		return models.Credential{}, false, err
	}
	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return models.Credential{}, false, fmt.Errorf("corrupt token slot: %w", err)
	}
	return cred, true, nil
}

// persist overwrites the slot atomically so a crash never leaves a
// half-written credential behind.
func (ts *TokenStore) persist(cred models.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}

	fileName := ts.conf.Trakt.TokenFile
	tmpFile := fileName + ".tmp"
	file, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (ts *TokenStore) refresh(ctx context.Context, cred models.Credential) (models.Credential, error) {
	body, err := json.Marshal(map[string]string{
		"refresh_token": cred.RefreshToken,
		"client_id":     ts.conf.Trakt.ClientID,
		"client_secret": ts.conf.Trakt.ClientSecret,
		"redirect_uri":  redirectURI,
		"grant_type":    "refresh_token",
	})
	if err != nil {
		return models.Credential{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.conf.Trakt.BaseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return models.Credential{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.client.Do(req)
	if err != nil {
		return models.Credential{}, fmt.Errorf("token refresh: %w: %v", models.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Credential{}, fmt.Errorf("token refresh rejected with status %d: %w", resp.StatusCode, models.ErrAuthRefreshFailed)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return models.Credential{}, fmt.Errorf("token refresh: decode response: %w", err)
	}
	return tok.credential(ts.now()), nil
}
