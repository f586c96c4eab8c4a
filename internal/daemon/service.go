package daemon

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

const launchdLabel = "com.horoscopo.daemon"

// launchdPlistTemplate runs the API as a launchd user agent.
const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ProgramPath}}</string>
        <string>start</string>
        <string>--foreground</string>
{{- if .ConfigPath}}
        <string>--config</string>
        <string>{{.ConfigPath}}</string>
{{- end}}
    </array>

    <key>WorkingDirectory</key>
    <string>{{.WorkingDir}}</string>

    <key>KeepAlive</key>
    <true/>

    <key>RunAtLoad</key>
    <true/>

    <key>StandardOutPath</key>
    <string>{{.LogDir}}/horoscopo.out.log</string>

    <key>StandardErrorPath</key>
    <string>{{.LogDir}}/horoscopo.err.log</string>

    <key>EnvironmentVariables</key>
    <dict>
        <key>PATH</key>
        <string>/usr/local/bin:/usr/bin:/bin:/opt/homebrew/bin</string>
    </dict>

    <key>ProcessType</key>
    <string>Background</string>

    <key>ThrottleInterval</key>
    <integer>5</integer>
</dict>
</plist>
`

type plistData struct {
	Label       string
	ProgramPath string
	ConfigPath  string
	WorkingDir  string
	LogDir      string
}

var plistTmpl = template.Must(template.New("plist").Parse(launchdPlistTemplate))

func renderPlist(w io.Writer, data plistData) error {
	if err := plistTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	return nil
}

// InstallService writes the launchd agent plist and loads it (macOS only).
// configPath is handed to the agent's start command when non-empty; the
// agent's stdout and stderr land in dataDir.
func InstallService(configPath, dataDir string) error {
	path, err := plistPath()
	if err != nil {
		return err
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("determining executable path: %w", err)
	}
	if execPath, err = filepath.EvalSymlinks(execPath); err != nil {
		return fmt.Errorf("resolving executable symlinks: %w", err)
	}

	for _, dir := range []string{filepath.Dir(path), dataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plist file %s: %w", path, err)
	}
	err = renderPlist(f, plistData{
		Label:       launchdLabel,
		ProgramPath: execPath,
		ConfigPath:  configPath,
		WorkingDir:  dataDir,
		LogDir:      dataDir,
	})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing plist file: %w", cerr)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Plist written to %s\n", path)

	// A previous version may still be loaded.
	_ = launchctl("unload", path)
	if err := launchctl("load", path); err != nil {
		return err
	}
	fmt.Printf("Service %s loaded via launchctl\n", launchdLabel)
	return nil
}

// UninstallService unloads the agent and removes its plist.
func UninstallService() error {
	path, err := plistPath()
	if err != nil {
		return err
	}
	_ = launchctl("unload", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing plist: %w", err)
	}
	fmt.Printf("Service %s uninstalled\n", launchdLabel)
	return nil
}

func plistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist"), nil
}

func launchctl(action, path string) error {
	cmd := exec.Command("launchctl", action, path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launchctl %s: %w", action, err)
	}
	return nil
}
