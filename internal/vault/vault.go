// Package vault resolves provider credentials from the OS keychain, the
// environment or key files.
package vault

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keychain service under which credentials are stored.
const ServiceName = "horoscopo"

// ErrNotFound is returned when a credential exists in neither the keychain
// nor the environment.
var ErrNotFound = errors.New("vault: key not found")

// Vault stores credentials in the OS keychain under ServiceName. Lookups fall
// back to the HOROSCOPO_KEY_<NAME> environment variable.
type Vault struct{}

// New returns a Vault. It holds no state; the keychain is the store.
func New() *Vault {
	return &Vault{}
}

// EnvVar returns the fallback environment variable for name, e.g.
// HOROSCOPO_KEY_RESPALDO_1 for "respaldo-1".
func EnvVar(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return "HOROSCOPO_KEY_" + strings.ToUpper(r.Replace(name))
}

// Set stores key for name in the keychain.
func (v *Vault) Set(name, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("vault: refusing to store an empty key for %q", name)
	}
	if err := keyring.Set(ServiceName, name, key); err != nil {
		return fmt.Errorf("vault: store %q: %w", name, err)
	}
	return nil
}

// Get returns the key for name from the keychain or, failing that, from
// EnvVar(name).
func (v *Vault) Get(name string) (string, error) {
	if secret, err := keyring.Get(ServiceName, name); err == nil && secret != "" {
		return secret, nil
	}
	if secret := os.Getenv(EnvVar(name)); secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("%w for %q (keychain empty, %s unset)", ErrNotFound, name, EnvVar(name))
}

// Delete removes the keychain entry for name.
func (v *Vault) Delete(name string) error {
	if err := keyring.Delete(ServiceName, name); err != nil {
		return fmt.Errorf("vault: delete %q: %w", name, err)
	}
	return nil
}

// Resolve returns the credential for a configured provider. An empty keyRef
// means Get(name). On failure the credential is empty; callers keep the
// provider and let the failover loop skip it.
func (v *Vault) Resolve(name, keyRef string) (string, error) {
	if keyRef == "" {
		return v.Get(name)
	}
	return v.ResolveKeyRef(keyRef)
}

// ResolveKeyRef resolves one of
//
//	keyring://horoscopo/<name>
//	env:VARIABLE
//	file:///path/to/key
func (v *Vault) ResolveKeyRef(keyRef string) (string, error) {
	for _, s := range schemes {
		if rest, ok := strings.CutPrefix(keyRef, s.prefix); ok {
			return s.resolve(v, rest)
		}
	}
	return "", fmt.Errorf("vault: unsupported key reference %q (want keyring://%s/<name>, env:VAR or file:///path)", keyRef, ServiceName)
}

var schemes = []struct {
	prefix  string
	resolve func(v *Vault, rest string) (string, error)
}{
	{"keyring://", (*Vault).fromKeyring},
	{"env:", (*Vault).fromEnv},
	{"file://", (*Vault).fromFile},
}

func (v *Vault) fromKeyring(rest string) (string, error) {
	service, name, ok := strings.Cut(rest, "/")
	if !ok || service != ServiceName || name == "" {
		return "", fmt.Errorf("vault: keyring reference must be keyring://%s/<name>, got keyring://%s", ServiceName, rest)
	}
	return v.Get(name)
}

func (v *Vault) fromEnv(variable string) (string, error) {
	if secret := os.Getenv(variable); secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("%w: environment variable %q is not set", ErrNotFound, variable)
}

func (v *Vault) fromFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("vault: read key file: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("vault: key file %q is empty", path)
	}
	return key, nil
}
