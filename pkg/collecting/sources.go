package collecting

import (
	"fmt"
	"runtime"
	"strings"
)

// Adapters lists the accepted adapter names.
func Adapters() []string {
	return []string{AdapterAuto, AdapterProcfs, AdapterGopsutil}
}

// New builds the readers for the named adapter. auto selects procfs on Linux
// and gopsutil everywhere else.
func New(adapter, procRoot string) (*Sources, error) {
	switch strings.ToLower(adapter) {
	case "", AdapterAuto:
		if runtime.GOOS == "linux" {
			return newProcfsSources(procRoot)
		}
		return newGopsutilSources(), nil
	case AdapterProcfs:
		return newProcfsSources(procRoot)
	case AdapterGopsutil:
		return newGopsutilSources(), nil
	}
	return nil, fmt.Errorf("unknown adapter %q (valid: %s)", adapter, strings.Join(Adapters(), ", "))
}
