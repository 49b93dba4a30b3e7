package auth

import (
	"context"
	"go-ws-relay/internal/config"

	"github.com/coreos/go-oidc/v3/oidc"
)

// NewVerifier discovers the OIDC provider at cfg.IssuerURL and returns a
// verifier for ID tokens issued to cfg.ClientID.
func NewVerifier(ctx context.Context, cfg *config.OIDCConfig) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, err
	}
	return provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}), nil
}
