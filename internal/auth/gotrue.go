package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoTrueProvider talks to a GoTrue REST API, e.g. "https://<project>.supabase.co/auth/v1".
type GoTrueProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGoTrueProvider returns a provider for baseURL. A nil client gets a 10s timeout client.
func NewGoTrueProvider(baseURL, apiKey string, client *http.Client) *GoTrueProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoTrueProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp calls POST /signup.
func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string) (*User, *Session, error) {
	body, err := p.do(ctx, http.MethodPost, "/signup", nil, "", credentials{email, password})
	if err != nil {
		return nil, nil, err
	}

	// With autoconfirm the provider answers with a session, otherwise with the bare user.
	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, nil, fmt.Errorf("decode signup response: %w", err)
	}
	if sess.AccessToken != "" {
		return sess.User, &sess, nil
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, nil, fmt.Errorf("decode signup user: %w", err)
	}
	return &u, nil, nil
}

// SignIn calls POST /token?grant_type=password.
func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	q := url.Values{"grant_type": {"password"}}
	return p.token(ctx, q, credentials{email, password})
}

// Refresh calls POST /token?grant_type=refresh_token.
func (p *GoTrueProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	q := url.Values{"grant_type": {"refresh_token"}}
	return p.token(ctx, q, map[string]string{"refresh_token": refreshToken})
}

func (p *GoTrueProvider) token(ctx context.Context, q url.Values, payload interface{}) (*Session, error) {
	body, err := p.do(ctx, http.MethodPost, "/token", q, "", payload)
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, &ProviderError{Status: http.StatusUnauthorized, Message: "no session returned"}
	}
	return &sess, nil
}

// SignOut calls POST /logout with the user's token.
func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil)
	return err
}

// GetUser calls GET /user with the user's token.
func (p *GoTrueProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	body, err := p.do(ctx, http.MethodGet, "/user", nil, accessToken, nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == "" {
		return nil, &ProviderError{Status: http.StatusUnauthorized, Message: "user not found"}
	}
	return &u, nil
}

// ResetPassword calls POST /recover.
func (p *GoTrueProvider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	var q url.Values
	if redirectTo != "" {
		q = url.Values{"redirect_to": {redirectTo}}
	}
	_, err := p.do(ctx, http.MethodPost, "/recover", q, "", map[string]string{"email": email})
	return err
}

// do sends a request and returns the body of a 2xx response. Non-2xx answers become
// *ProviderError; transport failures are returned wrapped.
func (p *GoTrueProvider) do(ctx context.Context, method, path string, q url.Values, bearer string, payload interface{}) ([]byte, error) {
	u := p.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = p.apiKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Status: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	return body, nil
}

// errorMessage picks the human-readable message out of the GoTrue error shapes.
func errorMessage(body []byte, fallback string) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return fallback
	}
	for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if m != "" {
			return m
		}
	}
	return fallback
}
