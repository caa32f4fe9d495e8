// Package sysinfo detects host details for the proposal source.
package sysinfo

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

const osReleasePath = "/etc/os-release"

// Collector implements ports.SystemInfoCollector. The OS name and tool list
// are detected once; the working directory is read on every call.
type Collector struct {
	toolsToCheck  []string
	osReleasePath string
	goos          string
	goarch        string

	once  sync.Once
	name  string
	tools []string
}

// NewCollector returns a Collector for the running host.
func NewCollector() *Collector {
	return &Collector{
		toolsToCheck:  []string{"apt", "brew", "dnf", "docker", "git", "kubectl", "pacman", "python3", "systemctl", "yum"},
		osReleasePath: osReleasePath,
		goos:          runtime.GOOS,
		goarch:        runtime.GOARCH,
	}
}

// Collect gathers the host summary.
func (c *Collector) Collect(ctx context.Context) domain.SystemInfo {
	c.once.Do(func() {
		c.name = c.detectOSName(ctx)
		c.tools = c.detectTools()
	})
	wd, _ := os.Getwd()
	return domain.SystemInfo{
		OSName:     c.name,
		OS:         c.goos,
		Arch:       machine(c.goarch),
		Shell:      detectShell(c.goos),
		WorkingDir: wd,
		Tools:      c.tools,
	}
}

func (c *Collector) detectOSName(ctx context.Context) string {
	switch c.goos {
	case "linux":
		if name := prettyName(c.osReleasePath); name != "" {
			return name
		}
		if release := strings.TrimSpace(runCmd(ctx, "uname", "-r")); release != "" {
			return "Linux " + release
		}
		return "Linux"
	case "darwin":
		if version := strings.TrimSpace(runCmd(ctx, "sw_vers", "-productVersion")); version != "" {
			return "macOS " + version
		}
		return "macOS"
	case "windows":
		return "Windows"
	default:
		return c.goos
	}
}

func (c *Collector) detectTools() []string {
	var available []string
	for _, tool := range c.toolsToCheck {
		if _, err := exec.LookPath(tool); err == nil {
			available = append(available, tool)
		}
	}
	sort.Strings(available)
	return available
}

// prettyName reads PRETTY_NAME from an os-release file.
func prettyName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || key != "PRETTY_NAME" {
			continue
		}
		return strings.Trim(value, `"'`)
	}
	return ""
}

// machine maps Go architecture names to the names uname reports.
func machine(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "arm64"
	default:
		return goarch
	}
}

func detectShell(goos string) string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	if goos == "windows" {
		return "cmd"
	}
	return "sh"
}

func runCmd(ctx context.Context, name string, args ...string) string {
	cctx, cancel := context.WithTimeout(ctx, domain.DefaultProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(cctx, name, args...).Output()
	if err != nil {
		return ""
	}
	return string(out)
}

var _ ports.SystemInfoCollector = (*Collector)(nil)
