//go:build linux

package collecting

import (
	"fmt"
	"sync"
	"time"

	"SystemMonitor/pkg/logging"

	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Procfs reads counters straight from a proc filesystem mount. Its methods
// are split by concern across cpu.go, memory.go, network.go and process.go.
type Procfs struct {
	fs       procfs.FS
	root     string
	pageSize uint64
	log      zerolog.Logger

	bootOnce sync.Once
	boot     time.Time
	bootErr  error
}

func NewProcfs(root string) (*Procfs, error) {
	if root == "" {
		root = procDir
	}
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("open procfs at %s: %w", root, err)
	}
	return &Procfs{
		fs:       fs,
		root:     root,
		pageSize: uint64(unix.Getpagesize()),
		log:      logging.WithComponent("collecting.procfs"),
	}, nil
}

func newProcfsSources(root string) (*Sources, error) {
	p, err := NewProcfs(root)
	if err != nil {
		return nil, err
	}
	return &Sources{Name: AdapterProcfs, Host: p, Processes: p, Interfaces: p}, nil
}

// bootTime is read once; process start times are derived from it so they stay
// stable across cycles.
func (p *Procfs) bootTime() (time.Time, error) {
	p.bootOnce.Do(func() {
		st, err := p.fs.Stat()
		if err != nil {
			p.bootErr = classify("read boot time", "", err)
			return
		}
		p.boot = time.Unix(int64(st.BootTime), 0)
	})
	return p.boot, p.bootErr
}
