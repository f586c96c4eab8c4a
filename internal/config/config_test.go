package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "horoscopo.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_WithExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
port = 9090
log_level = "debug"
data_dir = "`+dir+`"

[[providers]]
name = "principal"
base_url = "https://a.example.com"
key_ref = "env:HOROSCOPO_KEY_PRINCIPAL"
format = "data"
timeout = 20

[[providers]]
name = "respaldo-1"
base_url = "https://b.example.com"
key_ref = "keyring://horoscopo/respaldo-1"
sign_param = "zodiac"
key_header = "X-RapidAPI-Key"
host_header = "b.example.com"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want %q", cfg.Server.LogLevel, "debug")
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("Providers: got %d, want 2", len(cfg.Providers))
	}
	if cfg.Providers[0].Name != "principal" || cfg.Providers[1].Name != "respaldo-1" {
		t.Errorf("provider order not preserved: %q, %q", cfg.Providers[0].Name, cfg.Providers[1].Name)
	}
	if cfg.Providers[0].TimeoutDuration() != 20*time.Second {
		t.Errorf("principal timeout: got %v", cfg.Providers[0].TimeoutDuration())
	}
	if cfg.Providers[1].SignParam != "zodiac" || cfg.Providers[1].HostHeader != "b.example.com" {
		t.Errorf("respaldo-1 fields not decoded: %+v", cfg.Providers[1])
	}
	if cfg.Providers[1].Timeout != 0 {
		t.Errorf("unset timeout should stay zero, got %d", cfg.Providers[1].Timeout)
	}
	if ConfigFilePath() != path {
		t.Errorf("ConfigFilePath: got %q, want %q", ConfigFilePath(), path)
	}
	if Get() != cfg {
		t.Error("Get should return the loaded config")
	}
	set(DefaultConfig())
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
port = 7690
log_level = "info"
data_dir = "`+dir+`"
`)

	t.Setenv("HOROSCOPO_SERVER_PORT", "8888")
	t.Setenv("HOROSCOPO_REWRITE_DEFAULT_LANGUAGE", "en")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Port with env override: got %d, want 8888", cfg.Server.Port)
	}
	if cfg.Rewrite.DefaultLanguage != "en" {
		t.Errorf("DefaultLanguage with env override: got %q, want en", cfg.Rewrite.DefaultLanguage)
	}
	set(DefaultConfig())
}

func TestLoad_NoProvidersIsValid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
data_dir = "`+dir+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("Providers: got %d, want 0", len(cfg.Providers))
	}
	set(DefaultConfig())
}

func TestLoad_ValidationFailure_BadPort(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
port = 0
data_dir = "`+dir+`"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for port 0")
	}
}

func TestLoad_ValidationFailure_ProviderTimeout(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
data_dir = "`+dir+`"

[[providers]]
name = "slow"
base_url = "https://slow.example.com"
timeout = 500
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for timeout 500")
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	path := writeConfig(t, `
[server]
data_dir = "~/.horoscopo-test"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(home, ".horoscopo-test"); cfg.Server.DataDir != want {
		t.Errorf("DataDir: got %q, want %q", cfg.Server.DataDir, want)
	}
	set(DefaultConfig())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port: got %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.BindAddress != DefaultBindAddress {
		t.Errorf("BindAddress: got %q, want %q", cfg.Server.BindAddress, DefaultBindAddress)
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("default config should have no providers, got %d", len(cfg.Providers))
	}
	if cfg.Rewrite.Enabled {
		t.Error("rewrite should be disabled by default")
	}
	if err := validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NormalizesEnumCase(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
log_level = "DEBUG"
data_dir = "`+dir+`"

[tracing]
enabled = true
exporter = "OTLP-GRPC"
service_name = "horoscopo"

[[providers]]
name = "principal"
base_url = "https://a.example.com"
format = " Generic "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer set(DefaultConfig())

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Tracing.Exporter != "otlp-grpc" {
		t.Errorf("Exporter: got %q, want otlp-grpc", cfg.Tracing.Exporter)
	}
	if cfg.Providers[0].Format != "generic" {
		t.Errorf("Format: got %q, want generic", cfg.Providers[0].Format)
	}
}

func TestImportConfig_NormalizesEnumCase(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
data_dir = "`+dir+`"

[[providers]]
name = "principal"
base_url = "https://a.example.com"
format = "AstroPredict"
`)
	if err := ImportConfig(path); err != nil {
		t.Fatalf("ImportConfig: %v", err)
	}
	defer set(DefaultConfig())

	if got := Get().Providers[0].Format; got != "astropredict" {
		t.Errorf("Format: got %q, want astropredict", got)
	}
}

func TestLoad_ProviderRequestConventions(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[server]
data_dir = "`+dir+`"

[[providers]]
name = "astro"
base_url = "https://astro.example.com"
sign_param = "zodiac"
timeframe_param = "type"
params = { timezone = "UTC" }
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer set(DefaultConfig())

	p := cfg.Providers[0]
	if p.TimeframeParam != "type" {
		t.Errorf("TimeframeParam: got %q, want type", p.TimeframeParam)
	}
	if p.Params["timezone"] != "UTC" {
		t.Errorf("Params: got %v", p.Params)
	}
}

func TestValidate_TimeframeParamClashesWithSign(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = []ProviderConfig{{Name: "a", BaseURL: "https://a.example.com", SignParam: "q", TimeframeParam: "q"}}
	if err := validate(cfg); err == nil {
		t.Fatal("expected error when timeframe_param equals sign_param")
	}
}

func TestExampleConfig_Validates(t *testing.T) {
	cfg := ExampleConfig()
	if len(cfg.Providers) != 3 {
		t.Fatalf("example providers: got %d, want 3", len(cfg.Providers))
	}
	if cfg.Providers[0].Name != "principal" {
		t.Errorf("first provider: got %q, want principal", cfg.Providers[0].Name)
	}
	astro := cfg.Providers[1]
	if astro.TimeframeParam != "type" || astro.Params["timezone"] != "UTC" {
		t.Errorf("astropredict conventions: timeframe_param=%q params=%v", astro.TimeframeParam, astro.Params)
	}
	if err := validate(cfg); err != nil {
		t.Errorf("example config should validate: %v", err)
	}
}

func TestProviderConfig_TimeoutDuration(t *testing.T) {
	tests := []struct {
		timeout int
		wantSec int
	}{
		{0, 15},  // default
		{-1, 15}, // negative defaults
		{60, 60},
		{1, 1},
	}

	for _, tt := range tests {
		p := ProviderConfig{Timeout: tt.timeout}
		got := p.TimeoutDuration().Seconds()
		if int(got) != tt.wantSec {
			t.Errorf("TimeoutDuration(%d): got %v, want %ds", tt.timeout, got, tt.wantSec)
		}
	}
}

func TestConfigFilePath_BeforeLoad(t *testing.T) {
	loadedConfigFile.Store("")
	if path := ConfigFilePath(); path != "" {
		t.Errorf("ConfigFilePath before load: got %q, want empty", path)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "exported.toml")

	cfg := ExampleConfig()
	cfg.Server.DataDir = dir
	cfg.Server.Port = 9999
	set(cfg)

	if err := ExportConfig(exportPath); err != nil {
		t.Fatalf("ExportConfig: %v", err)
	}
	set(DefaultConfig())

	if err := ImportConfig(exportPath); err != nil {
		t.Fatalf("ImportConfig: %v", err)
	}

	got := Get()
	if got.Server.Port != 9999 {
		t.Errorf("Port after import: got %d, want 9999", got.Server.Port)
	}
	if len(got.Providers) != 3 || got.Providers[1].Name != "respaldo-1" {
		t.Errorf("providers after import: %+v", got.Providers)
	}

	set(DefaultConfig())
}

func TestImportConfig_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 70000
data_dir = "/tmp/x"
`)
	if err := ImportConfig(path); err == nil {
		t.Fatal("expected validation error on import")
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "horoscopo.toml")
	write := func(port int) {
		content := "[server]\nport = " + strconv.Itoa(port) + "\ndata_dir = \"" + dir + "\"\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	write(8001)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	w, err := Watch(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	changed := make(chan int, 1)
	w.OnChange(func(old, new *Config) {
		select {
		case changed <- new.Server.Port:
		default:
		}
	})

	write(8002)

	select {
	case port := <-changed:
		if port != 8002 {
			t.Errorf("reloaded port: got %d, want 8002", port)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	set(DefaultConfig())
}
