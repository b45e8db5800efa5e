// Package identity verifies bearer credentials against the identity
// provider's account-lookup endpoint and maps them to a stable user id.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pairents/edge/engine/domain"
)

const defaultLookupURL = "https://identitytoolkit.googleapis.com/v1/accounts:lookup"

// Verifier resolves bearer tokens to user ids.
type Verifier struct {
	apiKey    string
	lookupURL string
	client    *http.Client
}

// NewVerifier creates a Verifier. An empty lookupURL selects the
// production endpoint.
func NewVerifier(apiKey, lookupURL string, client *http.Client) *Verifier {
	if lookupURL == "" {
		lookupURL = defaultLookupURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{apiKey: apiKey, lookupURL: lookupURL, client: client}
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []struct {
		LocalID string `json:"localId"`
	} `json:"users"`
}

// Verify exchanges token for the account's user id. Any upstream
// rejection or malformed reply maps to ErrAuthFailure; the caller
// cannot distinguish a bad token from a revoked one, by intent.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrAuthFailure
	}

	body, err := json.Marshal(lookupRequest{IDToken: token})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.lookupURL+"?key="+v.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: identity lookup: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: identity lookup: %v", domain.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", domain.ErrAuthFailure, resp.StatusCode)
	}

	var out lookupResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuthFailure, err)
	}
	if len(out.Users) == 0 || out.Users[0].LocalID == "" {
		return "", domain.ErrAuthFailure
	}
	return out.Users[0].LocalID, nil
}
