// Package metrics defines the data structures shared by the sampling engine
// and the consumers of its snapshots.
package metrics

import (
	"fmt"
	"strings"
	"time"
)

// Category is one family of metrics the engine can be asked to collect.
type Category string

const (
	CategoryCPU       Category = "cpu"
	CategoryMemory    Category = "memory"
	CategoryNetwork   Category = "network"
	CategoryProcesses Category = "processes"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{CategoryCPU, CategoryMemory, CategoryNetwork, CategoryProcesses}
}

// ParseCategory maps a configuration string onto a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryCPU, CategoryMemory, CategoryNetwork, CategoryProcesses:
		return c, nil
	case "process", "procs":
		return CategoryProcesses, nil
	case "net":
		return CategoryNetwork, nil
	case "mem":
		return CategoryMemory, nil
	}
	return "", fmt.Errorf("unknown metric category %q (valid: cpu, memory, network, processes)", s)
}

// CPUNormalization selects what 100% means for process CPU usage.
type CPUNormalization string

const (
	// NormalizePerCore reports one fully busy core as 100%. A process running
	// on several cores can exceed 100%.
	NormalizePerCore CPUNormalization = "per-core"
	// NormalizeWholeMachine reports all cores fully busy as 100%.
	NormalizeWholeMachine CPUNormalization = "whole-machine"
)

// DefaultNormalization is used when the configuration does not choose one.
const DefaultNormalization = NormalizePerCore

// ParseCPUNormalization maps a configuration string onto a CPUNormalization.
func ParseCPUNormalization(s string) (CPUNormalization, error) {
	switch n := CPUNormalization(strings.ToLower(strings.TrimSpace(s))); n {
	case "":
		return DefaultNormalization, nil
	case NormalizePerCore, NormalizeWholeMachine:
		return n, nil
	case "core", "percore":
		return NormalizePerCore, nil
	case "machine", "wholemachine":
		return NormalizeWholeMachine, nil
	}
	return "", fmt.Errorf("unknown cpu normalization %q (valid: per-core, whole-machine)", s)
}

// HostInfo is static host identification, read once when the engine starts.
type HostInfo struct {
	Hostname    string    `json:"hostname"`
	Platform    string    `json:"platform"`
	Kernel      string    `json:"kernel"`
	LogicalCPUs int       `json:"logicalCpus"`
	BootTime    time.Time `json:"bootTime"`
}
