package collecting

const (
	jiffiesPerSecond = 100
	bytesPerKilobyte = 1024
	procDir          = "/proc"
	unknownValue     = "unknown"

	AdapterAuto     = "auto"
	AdapterProcfs   = "procfs"
	AdapterGopsutil = "gopsutil"
)
