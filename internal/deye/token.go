package deye

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"deye-status/internal/domain"
	"deye-status/internal/kvstore"
	"deye-status/internal/metrics"
	"deye-status/pkg/logger"
)

const tokenKey = "deye_token"

// Credentials are the four values DeyeCloud requires for a developer login.
type Credentials struct {
	AppID     string
	AppSecret string
	Email     string
	Password  string
}

// ErrorSink receives diagnostic error records. Appends are best-effort.
type ErrorSink interface {
	Append(ctx context.Context, contextTag, message string)
}

// TokenProvider obtains a DeyeCloud bearer token and caches it in the KV
// store. Deye tokens live for about two months, so a cached token is
// returned without any expiry check of its own; the storage TTL is the
// authority.
type TokenProvider struct {
	client      *http.Client
	baseURL     string
	store       kvstore.Store
	creds       Credentials
	manualToken string
	tokenTTL    time.Duration
	errlog      ErrorSink
}

// NewTokenProvider creates a token provider. errlog may be nil.
func NewTokenProvider(client *http.Client, baseURL string, store kvstore.Store, creds Credentials, manualToken string, tokenTTL time.Duration, errlog ErrorSink) *TokenProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenProvider{
		client:      client,
		baseURL:     baseURL,
		store:       store,
		creds:       creds,
		manualToken: manualToken,
		tokenTTL:    tokenTTL,
		errlog:      errlog,
	}
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	Msg         string `json:"msg"`
	Data        struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

// token returns the token wherever the upstream decided to put it this time.
func (r *tokenResponse) token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Data.AccessToken
}

// credentialStrategy is one shape of the login payload. Deye accounts are
// keyed by email, but some reject the "email" field and want the same
// address as "username".
type credentialStrategy struct {
	name       string
	identField string
}

var loginStrategies = []credentialStrategy{
	{name: "email", identField: "email"},
	{name: "username", identField: "username"},
}

// GetAccessToken returns a usable bearer token, from the manual override,
// the KV cache, or a fresh login, in that order.
func (p *TokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	if p.manualToken != "" {
		return p.manualToken, nil
	}

	if cached := p.readCachedToken(ctx); cached != "" {
		return cached, nil
	}

	if err := p.validateCredentials(); err != nil {
		return "", err
	}

	token, err := p.login(ctx)
	if err != nil {
		return "", err
	}

	p.writeCachedToken(ctx, token)
	return token, nil
}

func (p *TokenProvider) validateCredentials() error {
	var missing []string
	if p.creds.AppID == "" {
		missing = append(missing, "DEYE_APP_ID")
	}
	if p.creds.AppSecret == "" {
		missing = append(missing, "DEYE_APP_SECRET")
	}
	if p.creds.Email == "" {
		missing = append(missing, "DEYE_EMAIL")
	}
	if p.creds.Password == "" {
		missing = append(missing, "DEYE_PASSWORD")
	}
	if len(missing) > 0 {
		return domain.NewConfigError("missing credentials: " + strings.Join(missing, ", "))
	}
	return nil
}

// login walks the credential strategies in order and returns the first
// token obtained. The upstream never sees the plaintext password, only its
// SHA-256 digest.
func (p *TokenProvider) login(ctx context.Context) (string, error) {
	digest := sha256.Sum256([]byte(p.creds.Password))
	passwordHash := hex.EncodeToString(digest[:])

	var lastMsg string
	for i, strategy := range loginStrategies {
		token, msg, err := p.attemptLogin(ctx, strategy, passwordHash)
		if err != nil {
			lastMsg = err.Error()
		} else if token != "" {
			return token, nil
		} else {
			lastMsg = msg
		}

		// Only the first rejection is worth a diagnostic record; the final
		// failure is surfaced to the caller anyway.
		if i == 0 && p.errlog != nil {
			p.errlog.Append(ctx, "auth_"+strategy.name+"_failed",
				fmt.Sprintf("%s login failed: %s", strategy.name, truncate(lastMsg, 150)))
		}
	}

	return "", domain.NewLoginError("failed to obtain token (tried email+username): " + truncate(lastMsg, 150))
}

func (p *TokenProvider) attemptLogin(ctx context.Context, strategy credentialStrategy, passwordHash string) (token, msg string, err error) {
	payload := map[string]string{
		"appSecret":         p.creds.AppSecret,
		strategy.identField: p.creds.Email,
		"password":          passwordHash,
	}
	body, _ := json.Marshal(payload)

	metrics.AuthAttempts.Inc()

	authURL := fmt.Sprintf("%s/v1.0/account/token?appId=%s", p.baseURL, p.creds.AppID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("auth response decode failed: %w", err)
	}

	if msg = result.Msg; msg == "" {
		msg = fmt.Sprintf("status %d, no accessToken in response", resp.StatusCode)
	}
	return result.token(), msg, nil
}

func (p *TokenProvider) readCachedToken(ctx context.Context) string {
	raw, found, err := p.store.Get(ctx, tokenKey)
	if err != nil {
		logger.Errorf("%v", &domain.StorageError{Op: "read token", Err: err})
		return ""
	}
	if !found {
		return ""
	}

	var cached domain.CachedToken
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return ""
	}
	return cached.Token
}

func (p *TokenProvider) writeCachedToken(ctx context.Context, token string) {
	cached := domain.CachedToken{
		Token:     token,
		CreatedAt: time.Now().UnixMilli(),
	}
	raw, _ := json.Marshal(cached)
	if err := p.store.Put(ctx, tokenKey, string(raw), p.tokenTTL); err != nil {
		logger.Errorf("%v", &domain.StorageError{Op: "write token", Err: err})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
