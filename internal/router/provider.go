package router

import (
	"strings"
	"sync/atomic"
	"time"
)

// Response formats understood by the horoscope decoder.
const (
	FormatAuto         = "auto"
	FormatGeneric      = "generic"
	FormatData         = "data"
	FormatAstroPredict = "astropredict"
)

// ProviderConfig holds the static configuration for an upstream horoscope
// provider. Credential is the resolved secret, not a key reference.
type ProviderConfig struct {
	Name           string        `json:"name"`
	BaseURL        string        `json:"base_url"`
	Credential     string        `json:"-"`
	Path           string        `json:"path"`
	SignParam      string        `json:"sign_param"`
	TimeframeParam string        `json:"timeframe_param"`
	KeyHeader      string        `json:"key_header"`
	KeyParam       string        `json:"key_param"`
	HostHeader     string        `json:"host_header"`
	Format         string        `json:"format"`
	Timeout        time.Duration `json:"timeout"`
	// Params are fixed query parameters sent on every request, such as
	// timezone=UTC. The sign, timeframe, language and key parameters take
	// precedence over them.
	Params map[string]string `json:"params,omitempty"`
}

// Provider is a configured provider plus its runtime state. The disabled
// flag only ever moves from false to true.
type Provider struct {
	ProviderConfig
	disabled atomic.Bool
}

// ProviderStatus represents the current state of a provider.
type ProviderStatus struct {
	Name          string `json:"name"`
	BaseURL       string `json:"base_url"`
	HasCredential bool   `json:"has_credential"`
	Disabled      bool   `json:"disabled"`
}

// NewProvider wraps cfg in a Provider, filling request conventions that
// were left empty.
func NewProvider(cfg ProviderConfig) *Provider {
	if cfg.Path == "" {
		cfg.Path = "horoscope"
	}
	if cfg.SignParam == "" {
		cfg.SignParam = "sign"
	}
	if cfg.TimeframeParam == "" {
		cfg.TimeframeParam = "timeframe"
	}
	if cfg.KeyHeader == "" && cfg.KeyParam == "" {
		cfg.KeyHeader = "X-Api-Key"
	}
	if cfg.Format == "" {
		cfg.Format = FormatAuto
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Provider{ProviderConfig: cfg}
}

// Disable marks the provider unusable for the rest of the process lifetime.
// It reports whether this call performed the transition.
func (p *Provider) Disable() bool {
	return p.disabled.CompareAndSwap(false, true)
}

// Disabled reports whether the provider has been disabled.
func (p *Provider) Disabled() bool {
	return p.disabled.Load()
}

// HasCredential reports whether the provider carries a non-blank credential.
func (p *Provider) HasCredential() bool {
	return strings.TrimSpace(p.Credential) != ""
}

// Usable reports whether a lookup may be sent to this provider.
func (p *Provider) Usable() bool {
	return p.HasCredential() && !p.Disabled()
}

// Status returns a point-in-time snapshot of the provider.
func (p *Provider) Status() ProviderStatus {
	return ProviderStatus{
		Name:          p.Name,
		BaseURL:       p.BaseURL,
		HasCredential: p.HasCredential(),
		Disabled:      p.Disabled(),
	}
}
