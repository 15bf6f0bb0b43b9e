package util

import (
	"bufio"
	"bytes"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// HostInfo identifies the machine a run happened on.
type HostInfo struct {
	Hostname  string
	OS        string
	OSVersion string
	Arch      string
}

// GetHostInfo collects hostname, platform and OS release.
func GetHostInfo() HostInfo {
	info := HostInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}
	info.Hostname, _ = os.Hostname()
	info.OSVersion = osVersion()
	return info
}

// String renders "host (os-version, arch)".
func (h HostInfo) String() string {
	host := h.Hostname
	if host == "" {
		host = "unknown-host"
	}
	return host + " (" + h.OSVersion + ", " + h.Arch + ")"
}

func osVersion() string {
	switch runtime.GOOS {
	case "linux":
		if data, err := os.ReadFile("/etc/os-release"); err == nil {
			if v := parseOSRelease(data); v != "" {
				return v
			}
		}
		return "Linux"
	case "darwin":
		out, err := exec.Command("sw_vers", "-productVersion").Output()
		if err != nil {
			return "macOS"
		}
		return "macOS " + strings.TrimSpace(string(out))
	case "windows":
		out, err := exec.Command("cmd", "/c", "ver").Output()
		if err != nil {
			return "Windows"
		}
		return strings.TrimSpace(string(out))
	default:
		return runtime.GOOS
	}
}

// parseOSRelease prefers PRETTY_NAME, then NAME plus VERSION.
func parseOSRelease(data []byte) string {
	fields := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(val, `"'`)
	}
	if v := fields["PRETTY_NAME"]; v != "" {
		return v
	}
	return strings.TrimSpace(fields["NAME"] + " " + fields["VERSION"])
}
