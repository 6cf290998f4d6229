package callout

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Built-in auth scheme type tags.
const (
	AuthTypeBasic            = "basicAuth"
	AuthTypeAPIKey           = "apiKey"
	AuthTypeBearer           = "bearerToken"
	AuthTypeClientCredential = "clientCredential"
	AuthTypeJWTBearer        = "jwtBearer"
)

const headerAuthorization = "Authorization"

// basicAuthScheme sets an Authorization header from username/password
// properties.
type basicAuthScheme struct{}

func (basicAuthScheme) ApplyAuth(_ context.Context, req *Request, cfg AuthConfig) (*Request, error) {
	username, err := stringProperty(cfg.Properties, "username")
	if err != nil {
		return nil, err
	}

	password, err := stringProperty(cfg.Properties, "password")
	if err != nil {
		return nil, err
	}

	decorated := req.Clone()
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	decorated.SetHeader(headerAuthorization, "Basic "+credentials)

	return decorated, nil
}

// apiKeyScheme places an API key into a configurable header.
type apiKeyScheme struct{}

func (apiKeyScheme) ApplyAuth(_ context.Context, req *Request, cfg AuthConfig) (*Request, error) {
	apiKey, err := stringProperty(cfg.Properties, "apiKey")
	if err != nil {
		return nil, err
	}

	decorated := req.Clone()
	decorated.SetHeader(optionalStringProperty(cfg.Properties, "headerName", "X-API-Key"), apiKey)

	return decorated, nil
}

// bearerTokenScheme sets a caller-supplied bearer token.
type bearerTokenScheme struct{}

func (bearerTokenScheme) ApplyAuth(_ context.Context, req *Request, cfg AuthConfig) (*Request, error) {
	token, err := stringProperty(cfg.Properties, "token")
	if err != nil {
		return nil, err
	}

	decorated := req.Clone()
	decorated.SetHeader(headerAuthorization, "Bearer "+token)

	return decorated, nil
}

// clientCredentialScheme exchanges client credentials for an access token at
// a token endpoint, then injects it as a bearer token. The exchange runs on
// the engine's shared client within the invocation's deferred unit of work.
type clientCredentialScheme struct {
	client *http.Client
}

func (s *clientCredentialScheme) ApplyAuth(ctx context.Context, req *Request, cfg AuthConfig) (*Request, error) {
	clientID, err := stringProperty(cfg.Properties, "consumerKey")
	if err != nil {
		return nil, err
	}

	clientSecret, err := stringProperty(cfg.Properties, "consumerSecret")
	if err != nil {
		return nil, err
	}

	tokenEndpoint, err := stringProperty(cfg.Properties, "tokenEndpoint")
	if err != nil {
		return nil, err
	}

	form := url.Values{"grant_type": []string{"client_credentials"}}
	if scope := optionalStringProperty(cfg.Properties, "scope", ""); scope != "" {
		form.Set("scope", scope)
	}

	treq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("cannot build token request: %w", err)
	}

	treq.SetBasicAuth(clientID, clientSecret)
	treq.Header.Set("Content-Type", TypeFormURLEncoded)
	treq.Header.Set(headerAccept, TypeApplicationJSON)

	tresp, err := s.client.Do(treq)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer tresp.Body.Close()

	if tresp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", tresp.StatusCode)
	}

	payload, err := io.ReadAll(tresp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read token response: %w", err)
	}

	var grant struct {
		AccessToken string `json:"access_token"`
	}

	if err = json.Unmarshal(payload, &grant); err != nil {
		return nil, fmt.Errorf("cannot parse token response: %w", err)
	}

	if grant.AccessToken == "" {
		return nil, fmt.Errorf("token response contains no access token")
	}

	decorated := req.Clone()
	decorated.SetHeader(headerAuthorization, "Bearer "+grant.AccessToken)

	return decorated, nil
}

// jwtBearerScheme signs a short-lived JWT client assertion with a shared
// secret and injects it as a bearer token.
type jwtBearerScheme struct{}

func (jwtBearerScheme) ApplyAuth(_ context.Context, req *Request, cfg AuthConfig) (*Request, error) {
	signingKey, err := stringProperty(cfg.Properties, "signingKey")
	if err != nil {
		return nil, err
	}

	issuer, err := stringProperty(cfg.Properties, "issuer")
	if err != nil {
		return nil, err
	}

	audience, err := stringProperty(cfg.Properties, "audience")
	if err != nil {
		return nil, err
	}

	ttl := 300 * time.Second
	if raw := optionalStringProperty(cfg.Properties, "ttlSeconds", ""); raw != "" {
		seconds, perr := strconv.Atoi(raw)
		if perr != nil || seconds <= 0 {
			return nil, fmt.Errorf("auth config property %q must be a positive integer", "ttlSeconds")
		}

		ttl = time.Duration(seconds) * time.Second
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": issuer,
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	if subject := optionalStringProperty(cfg.Properties, "subject", ""); subject != "" {
		claims["sub"] = subject
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		return nil, fmt.Errorf("cannot sign client assertion: %w", err)
	}

	decorated := req.Clone()
	decorated.SetHeader(headerAuthorization, "Bearer "+token)

	return decorated, nil
}
