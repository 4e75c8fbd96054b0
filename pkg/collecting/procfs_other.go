//go:build !linux

package collecting

import (
	"fmt"
	"runtime"
)

func newProcfsSources(string) (*Sources, error) {
	return nil, fmt.Errorf("procfs adapter is not available on %s", runtime.GOOS)
}
