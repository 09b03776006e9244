package sandclock

import (
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/zeromicro/go-zero/core/logx"
)

var cpuPercent = cpu.Percent

// getCpuUsage returns the cpu usage since the previous call, so it doesn't block.
func getCpuUsage() float64 {
	percent, err := cpuPercent(0, false)
	if err != nil {
		logx.Errorf("failed to get cpu usage: %v", err)
		return 0
	}
	if len(percent) == 0 {
		logx.Error("failed to get cpu usage: no cpu reported")
		return 0
	}

	return percent[0]
}

func getMemoryUsage() float64 {
	memory, err := mem.VirtualMemory()
	if err != nil {
		logx.Errorf("failed to get memory usage: %v", err)
		return 0
	}

	return memory.UsedPercent
}
