package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	entraScope = "https://redis.azure.com/.default"

	// tokenRefreshMargin is how long before expiry a cached token stops
	// being served.
	tokenRefreshMargin = 5 * time.Minute
)

// entraTokenSource provides Entra ID credentials for managed Redis. One
// source is shared across all connections of a backend; tokens are cached
// until they near expiry.
type entraTokenSource struct {
	cred   azcore.TokenCredential
	logger *slog.Logger

	mu       sync.Mutex
	token    azcore.AccessToken
	username string
}

func newEntraTokenSource(logger *slog.Logger) (*entraTokenSource, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("workload identity credential: %w", err)
	}
	return &entraTokenSource{
		cred:   cred,
		logger: logger,
	}, nil
}

// Credentials matches the go-redis CredentialsProviderContext signature.
// Managed Redis authenticates with the token's object ID as the username
// and the raw token as the password.
func (s *entraTokenSource) Credentials(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Token != "" && time.Until(s.token.ExpiresOn) > tokenRefreshMargin {
		return s.username, s.token.Token, nil
	}

	token, err := s.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{entraScope},
	})
	if err != nil {
		return "", "", fmt.Errorf("acquire token: %w", err)
	}

	username, err := objectIDFromToken(token.Token)
	if err != nil {
		return "", "", err
	}

	s.token = token
	s.username = username
	s.logger.Debug("Acquired workload identity token", "expires_on", token.ExpiresOn)

	return username, token.Token, nil
}

// objectIDFromToken extracts the oid claim, which the server matches the
// ACL user against.
func objectIDFromToken(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("token is not a JWT")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode token claims: %w", err)
	}

	var claims struct {
		ObjectID string `json:"oid"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("parse token claims: %w", err)
	}
	if claims.ObjectID == "" {
		return "", fmt.Errorf("token has no oid claim")
	}

	return claims.ObjectID, nil
}
