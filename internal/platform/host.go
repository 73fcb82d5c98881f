package platform

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/phuslu/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// Host describes the machine the generator runs on. It only feeds the run
// log; strategy selection follows the configured target OS.
type Host struct {
	OS              string
	Arch            string
	Platform        string
	PlatformVersion string
	CPUModel        string
	Threads         int
}

// DescribeHost gathers host facts. Probe failures degrade to the runtime's
// view of the host rather than failing the build.
func DescribeHost(ctx context.Context) Host {
	h := Host{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		CPUModel: "Unknown CPU",
		Threads:  runtime.NumCPU(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		h.Platform = info.Platform
		h.PlatformVersion = info.PlatformVersion
		if info.KernelArch != "" {
			h.Arch = info.KernelArch
		}
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		h.CPUModel = cpus[0].ModelName
	}

	return h
}

// RequiredTools lists the executables a run will invoke for targetOS.
func RequiredTools(targetOS string) []string {
	tools := []string{"git", "clang"}
	switch targetOS {
	case "darwin":
		tools = append(tools, "brew")
	case "windows":
	default:
		tools = append(tools, "pkg-config")
	}
	return tools
}

// LookupTools reports where each tool resolves on PATH. Missing tools are
// only logged: the command that needs one fails with its own error.
func LookupTools(names []string) map[string]string {
	found := make(map[string]string, len(names))
	for _, name := range names {
		path, err := exec.LookPath(name)
		if err != nil {
			log.Warn().Str("tool", name).Msg("tool not found on PATH")
			continue
		}
		found[name] = path
	}
	return found
}
