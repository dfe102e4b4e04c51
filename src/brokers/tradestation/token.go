package tradestation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/trading-brokers/src/utils"
)

const DefaultTokenURL = "https://signin.tradestation.com/oauth/token"

// tokenManager caches a short-lived access token and exchanges the
// long-lived refresh credential for a new one once it expires.
//
// The mutex is held across the refresh call, so concurrent callers that
// observe an expired token coalesce onto a single in-flight refresh and
// all receive its result. Only one refresh is ever in flight at a time.
type tokenManager struct {
	mu           sync.Mutex
	exec         *utils.Executor
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string

	accessToken string
	expiresAt   time.Time

	now func() time.Time
}

func newTokenManager(exec *utils.Executor, tokenURL, clientID, clientSecret, refreshToken string) *tokenManager {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &tokenManager{
		exec:         exec,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		now:          time.Now,
	}
}

// Token returns a bearer token that is valid right now, refreshing first
// when the cached one is missing or expired. A refresh failure is fatal to
// the calling operation; beyond the executor's retry bound it is not
// retried here.
func (m *tokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && m.now().Before(m.expiresAt) {
		return m.accessToken, nil
	}

	form := url.Values{}
	form.Add("grant_type", "refresh_token")
	form.Add("client_id", m.clientID)
	form.Add("client_secret", m.clientSecret)
	form.Add("refresh_token", m.refreshToken)

	body, err := m.exec.Do(ctx, utils.Request{
		Op:     "RefreshToken",
		Method: http.MethodPost,
		URL:    m.tokenURL,
		Form:   form,
	})
	if err != nil {
		return "", fmt.Errorf("RefreshToken: failed to refresh access token: %w", err)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("RefreshToken: failed to decode response: %w", err)
	}

	if resp.AccessToken == "" {
		return "", fmt.Errorf("RefreshToken: response missing access_token: %s", body)
	}

	m.accessToken = resp.AccessToken
	m.expiresAt = m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)

	log.Debugf("RefreshToken: refreshed access token, expires at %s", m.expiresAt.Format(time.RFC3339))

	return m.accessToken, nil
}
