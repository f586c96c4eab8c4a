package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/danrleybayoshi/horoscopo/internal/cache"
	"github.com/danrleybayoshi/horoscopo/internal/config"
	"github.com/danrleybayoshi/horoscopo/internal/rewrite"
	"github.com/danrleybayoshi/horoscopo/internal/router"
	"github.com/danrleybayoshi/horoscopo/internal/vault"
)

// BuildRouter resolves each provider's credential and returns a router in
// configuration order. A credential that cannot be resolved is logged and
// left blank; the provider stays in the list and lookups skip it.
func BuildRouter(providers []config.ProviderConfig, v *vault.Vault, logger zerolog.Logger) (*router.Router, error) {
	list := make([]*router.Provider, 0, len(providers))
	for _, pc := range providers {
		credential, err := v.Resolve(pc.Name, pc.KeyRef)
		if err != nil {
			logger.Warn().Err(err).Str("provider", pc.Name).Msg("credential not resolved; provider will be skipped")
			credential = ""
		}

		list = append(list, router.NewProvider(router.ProviderConfig{
			Name:           pc.Name,
			BaseURL:        pc.BaseURL,
			Credential:     credential,
			Path:           pc.Path,
			SignParam:      pc.SignParam,
			TimeframeParam: pc.TimeframeParam,
			KeyHeader:      pc.KeyHeader,
			KeyParam:       pc.KeyParam,
			HostHeader:     pc.HostHeader,
			Format:         pc.Format,
			Timeout:        pc.TimeoutDuration(),
			Params:         pc.Params,
		}))
	}

	rtr, err := router.New(list)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("providers", rtr.Len()).
		Int("available", rtr.Available()).
		Msg("provider router initialized")
	return rtr, nil
}

// BuildRewriter returns a rewrite client for rc. When the rewrite API is
// disabled or its key cannot be resolved the client is returned without a
// key and reports ErrNotConfigured on use.
func BuildRewriter(rc config.RewriteConfig, v *vault.Vault, c *cache.Cache, logger zerolog.Logger) *rewrite.Client {
	var key string
	if rc.Enabled {
		k, err := v.Resolve("rewrite", rc.KeyRef)
		if err != nil {
			logger.Warn().Err(err).Msg("rewrite key not resolved; rewrites disabled")
		} else {
			key = k
		}
	}

	baseURL := rc.BaseURL
	if !rc.Enabled {
		baseURL = ""
	}

	return rewrite.New(rewrite.Config{
		BaseURL:           baseURL,
		Key:               key,
		Host:              rc.Host,
		Strength:          rc.Strength,
		DefaultLanguage:   rc.DefaultLanguage,
		Timeout:           time.Duration(rc.Timeout) * time.Second,
		RequestsPerMinute: rc.RequestsPerMinute,
	}, c, &http.Client{}, logger)
}
