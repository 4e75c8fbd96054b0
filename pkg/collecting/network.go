//go:build linux

package collecting

import (
	"context"
	"sort"
)

func (p *Procfs) ReadInterfaces(ctx context.Context) ([]InterfaceReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("read interfaces", "", err)
	}
	dev, err := p.fs.NetDev()
	if err != nil {
		return nil, classify("read interfaces", "", err)
	}

	out := make([]InterfaceReading, 0, len(dev))
	for name, line := range dev {
		out = append(out, InterfaceReading{
			Name:       name,
			BytesIn:    line.RxBytes,
			BytesOut:   line.TxBytes,
			PacketsIn:  line.RxPackets,
			PacketsOut: line.TxPackets,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
