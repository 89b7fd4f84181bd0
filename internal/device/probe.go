// Package device gathers local accelerator diagnostics: the device-status
// command, an nvidia-smi inventory, PCI graphics cards and host facts.
package device

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/klauspost/cpuid/v2"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"diffusiond/pkg/types"
)

// commandTimeout bounds every external command the prober runs.
const commandTimeout = 5 * time.Second

var cudaVersionRe = regexp.MustCompile(`CUDA Version:\s*([0-9.]+)`)

// Prober builds the diagnostics panel. The zero value is not usable; call New.
type Prober struct {
	statusCommand string

	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
	environ func() []string
	pciGPUs func() ([]types.DeviceProperties, error)
	host    func(ctx context.Context) types.HostInfo
}

// New returns a Prober that runs statusCommand (split on whitespace) for the
// raw status panel. An empty command disables that panel.
func New(statusCommand string) *Prober {
	return &Prober{
		statusCommand: strings.TrimSpace(statusCommand),
		run:           runCommand,
		environ:       os.Environ,
		pciGPUs:       pciGPUs,
		host:          hostInfo,
	}
}

// Report implements the manager's diagnostics source. When rt is non-nil the
// runtime's view of the accelerator wins; local probes fill in the rest.
func (p *Prober) Report(ctx context.Context, rt *types.RuntimeInfo) types.Diagnostics {
	d := types.Diagnostics{
		Env:           filterEnv(p.environ()),
		StatusCommand: p.statusCommand,
		Host:          p.host(ctx),
		Versions:      map[string]string{},
	}
	if p.statusCommand != "" {
		d.StatusOutput = p.statusOutput(ctx)
	}

	if rt != nil {
		d.Accelerator = rt.Accelerator
		d.DeviceName = rt.DeviceName
		d.Devices = rt.Devices
		for k, v := range rt.Versions {
			d.Versions[k] = v
		}
	} else {
		acc, devices, driver := p.Detect(ctx)
		d.Accelerator = acc
		d.Devices = devices
		if acc && len(devices) > 0 {
			d.DeviceName = devices[0].Name
		}
		if driver != "" {
			d.Versions["driver"] = driver
		}
	}
	if m := cudaVersionRe.FindStringSubmatch(d.StatusOutput); m != nil {
		if _, ok := d.Versions["cuda_driver"]; !ok {
			d.Versions["cuda_driver"] = m[1]
		}
	}
	if len(d.Versions) == 0 {
		d.Versions = nil
	}
	d.DeviceCount = len(d.Devices)
	return d
}

// Detect reports whether a local accelerator answers nvidia-smi. When it does
// not, PCI graphics cards are listed for information only.
func (p *Prober) Detect(ctx context.Context) (accelerator bool, devices []types.DeviceProperties, driver string) {
	out, err := p.run(ctx, "nvidia-smi",
		"--query-gpu=index,name,memory.total,driver_version",
		"--format=csv,noheader,nounits")
	if err == nil {
		devices, driver = parseNvidiaQuery(string(out))
		if len(devices) > 0 {
			return true, devices, driver
		}
	} else {
		log.Debug().Err(err).Msg("nvidia-smi query failed")
	}
	cards, err := p.pciGPUs()
	if err != nil {
		log.Debug().Err(err).Msg("pci gpu enumeration failed")
		return false, nil, ""
	}
	return false, cards, ""
}

func (p *Prober) statusOutput(ctx context.Context) string {
	fields := strings.Fields(p.statusCommand)
	out, err := p.run(ctx, fields[0], fields[1:]...)
	if err != nil {
		return fmt.Sprintf("%s not available or failed: %v", p.statusCommand, err)
	}
	return strings.TrimRight(string(out), "\n")
}

// parseNvidiaQuery reads "index, name, memory.total(MiB), driver" rows.
func parseNvidiaQuery(out string) ([]types.DeviceProperties, string) {
	var devices []types.DeviceProperties
	var driver string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}
		idx, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
		totalMB, _ := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		devices = append(devices, types.DeviceProperties{
			Index:            idx,
			Name:             strings.TrimSpace(parts[1]),
			TotalMemoryBytes: uint64(totalMB * 1024 * 1024),
		})
		if len(parts) > 3 && driver == "" {
			driver = strings.TrimSpace(parts[3])
		}
	}
	return devices, driver
}

// filterEnv keeps accelerator-related variables.
func filterEnv(environ []string) map[string]string {
	out := map[string]string{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if strings.HasPrefix(k, "CUDA") || strings.HasPrefix(k, "NVIDIA") || k == "LD_LIBRARY_PATH" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func pciGPUs() ([]types.DeviceProperties, error) {
	info, err := ghw.GPU()
	if err != nil {
		return nil, err
	}
	var out []types.DeviceProperties
	for _, card := range info.GraphicsCards {
		if card == nil {
			continue
		}
		name := card.Address
		if di := card.DeviceInfo; di != nil {
			var parts []string
			if di.Vendor != nil && di.Vendor.Name != "" {
				parts = append(parts, di.Vendor.Name)
			}
			if di.Product != nil && di.Product.Name != "" {
				parts = append(parts, di.Product.Name)
			}
			if len(parts) > 0 {
				name = strings.Join(parts, " ")
			}
		}
		out = append(out, types.DeviceProperties{Index: card.Index, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func hostInfo(ctx context.Context) types.HostInfo {
	h := types.HostInfo{CPUModel: strings.TrimSpace(cpuid.CPU.BrandName)}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		h.LogicalCPUs = n
	} else {
		h.LogicalCPUs = cpuid.CPU.LogicalCores
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.TotalMemoryBytes = vm.Total
	}
	return h
}
