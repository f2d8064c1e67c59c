package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/bartab-mfa/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-mfa/pkg/jwtx"
)

// ErrNoEncryptionKey is returned when neither MFA_ENCRYPTION_KEY nor
// MFA_MASTER_KEY_PATH is set. TOTP secrets written under a throwaway key
// would be unreadable after a restart, so there is no fallback.
var ErrNoEncryptionKey = errors.New("MFA_ENCRYPTION_KEY or MFA_MASTER_KEY_PATH must be set")

// InitSecretCipher builds the cipher for TOTP secrets. A hex key in the
// environment takes precedence over the key file.
func InitSecretCipher(cfg Config, logger *slog.Logger) (*cryptox.SecretCipher, error) {
	var key []byte
	var err error

	switch {
	case cfg.EncryptionKey != "":
		key, err = cryptox.ParseHexKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("MFA_ENCRYPTION_KEY: %w", err)
		}
		logger.Info("secret encryption key loaded from environment")
	case cfg.MasterKeyPath != "":
		key, err = cryptox.LoadKeyFile(cfg.MasterKeyPath)
		if err != nil {
			return nil, fmt.Errorf("MFA_MASTER_KEY_PATH: %w", err)
		}
		logger.Info("secret encryption key loaded from file", "path", cfg.MasterKeyPath)
	default:
		return nil, ErrNoEncryptionKey
	}

	return cryptox.NewSecretCipher(key)
}

// IdentityKeys holds the identity provider's public keys and, in JWKS mode,
// the fetcher that keeps them current.
type IdentityKeys struct {
	Keys     *jwtx.KeySet
	Verifier jwtx.Verifier
	Fetcher  *jwtx.JWKSFetcher // nil when keys come from a PEM file
}

// InitIdentityKeys loads the keys used to verify bearer tokens.
//
// Sources:
//   - AUTH_PUBLIC_KEY_PATH: a single PEM public key, read once. Tokens must
//     carry AUTH_PUBLIC_KEY_ID as kid, or no kid at all.
//   - AUTH_JWKS_URL: the identity provider's JWKS, fetched now and refreshed
//     every JWKS_REFRESH_INTERVAL once the fetcher is started.
//
// A failed initial JWKS fetch is logged, not fatal; /readyz reports the
// missing keys until a refresh succeeds.
func InitIdentityKeys(ctx context.Context, cfg Config, logger *slog.Logger) (*IdentityKeys, error) {
	keys := jwtx.NewKeySet()
	ik := &IdentityKeys{
		Keys: keys,
		Verifier: jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{
			Issuer: cfg.AuthIssuer,
		}),
	}

	switch {
	case cfg.AuthPublicKeyPath != "":
		if err := keys.LoadPEMFile(cfg.AuthPublicKeyPath, cfg.AuthPublicKeyID); err != nil {
			return nil, fmt.Errorf("failed to load identity public key: %w", err)
		}
		logger.Info("identity public key loaded", "path", cfg.AuthPublicKeyPath)
	case cfg.AuthJWKSURL != "":
		ik.Fetcher = &jwtx.JWKSFetcher{
			URL:      cfg.AuthJWKSURL,
			Keys:     keys,
			Interval: cfg.JWKSRefreshInterval,
			Logger:   logger,
		}
		if err := ik.Fetcher.Fetch(ctx); err != nil {
			logger.Warn("initial jwks fetch failed, will retry", "url", cfg.AuthJWKSURL, "error", err)
		} else {
			logger.Info("identity keys fetched", "url", cfg.AuthJWKSURL, "keys", len(keys.Snapshot().Keys))
		}
	default:
		return nil, errors.New("AUTH_PUBLIC_KEY_PATH or AUTH_JWKS_URL must be set")
	}

	return ik, nil
}
