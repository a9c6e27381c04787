// Package autostart registers the advisor's watch loop to start at login
package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	appName        = "nursery-advisor"
	appDisplayName = "Nursery Advisor"

	// watchArg is the subcommand started at login
	watchArg = "watch"

	osLinux   = "linux"
	osWindows = "windows"
	osDarwin  = "darwin"

	windowsRunKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
)

// IsEnabled checks if auto-start is enabled
func IsEnabled() (bool, error) {
	switch runtime.GOOS {
	case osLinux, osDarwin:
		path, err := entryPath(runtime.GOOS)
		if err != nil {
			return false, err
		}
		_, err = os.Stat(path)
		return err == nil, nil
	case osWindows:
		err := exec.Command("reg", "query", windowsRunKey, "/v", appName).Run()
		return err == nil, nil
	default:
		return false, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Enable registers the watch loop to start at login
func Enable() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}

	switch runtime.GOOS {
	case osLinux, osDarwin:
		path, err := entryPath(runtime.GOOS)
		if err != nil {
			return err
		}
		return writeEntry(path, entryContent(runtime.GOOS, execPath))
	case osWindows:
		//nolint:gosec // G204: execPath comes from os.Executable(), not user input
		cmd := exec.Command("reg", "add", windowsRunKey,
			"/v", appName,
			"/t", "REG_SZ",
			"/d", fmt.Sprintf(`"%s" %s`, execPath, watchArg),
			"/f")
		return cmd.Run()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable removes the login entry
func Disable() error {
	switch runtime.GOOS {
	case osLinux, osDarwin:
		path, err := entryPath(runtime.GOOS)
		if err != nil {
			return err
		}
		if runtime.GOOS == osDarwin {
			// Unload first; the agent may not be loaded
			//nolint:gosec // G204: path is built from the home directory
			_ = exec.Command("launchctl", "unload", path).Run()
		}
		err = os.Remove(path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	case osWindows:
		err := exec.Command("reg", "delete", windowsRunKey, "/v", appName, "/f").Run()
		if err != nil && strings.Contains(err.Error(), "not exist") {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// entryPath returns where the login entry lives: an XDG autostart file on
// Linux, a LaunchAgent on macOS
func entryPath(goos string) (string, error) {
	switch goos {
	case osLinux:
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config")
		}
		return filepath.Join(configDir, "autostart", appName+".desktop"), nil
	case osDarwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "LaunchAgents", "com."+appName+".plist"), nil
	default:
		return "", fmt.Errorf("no autostart file on %s", goos)
	}
}

// entryContent renders the login entry that runs execPath in watch mode
func entryContent(goos, execPath string) string {
	if goos == osDarwin {
		return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>%s</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`, appName, execPath, watchArg)
	}

	return fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Exec="%s" %s
Icon=%s
Comment=Next-action advice for feeds and naps
Categories=Utility;
Terminal=false
StartupNotify=false
X-GNOME-Autostart-enabled=true
`, appDisplayName, execPath, watchArg, appName)
}

func writeEntry(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating autostart directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0600)
}
