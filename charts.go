package sandclock

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func generateDurationItems(run []sample, size int) []opts.LineData {
	items := make([]opts.LineData, 0, size)
	for i := 0; i < size; i++ {
		if i < len(run) {
			items = append(items, opts.LineData{Value: run[i].Duration / time.Microsecond})
		} else {
			items = append(items, opts.LineData{Value: "-"})
		}
	}

	return items
}

func generateUsageItems(runs [][]sample, size int, usage func(s sample) float64) []opts.LineData {
	items := make([]opts.LineData, 0, size)
	for i := 0; i < size; i++ {
		var total float64
		var count int
		for _, run := range runs {
			if i < len(run) {
				total += usage(run[i])
				count++
			}
		}
		if count == 0 {
			items = append(items, opts.LineData{Value: "-"})
		} else {
			items = append(items, opts.LineData{Value: total / float64(count)})
		}
	}

	return items
}

func generateChart(title string, runs [][]sample, plotUsage bool) http.HandlerFunc {
	var size int
	for _, run := range runs {
		if len(run) > size {
			size = len(run)
		}
	}

	keys := make([]int, 0, size)
	for i := 0; i < size; i++ {
		keys = append(keys, i)
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		line := charts.NewLine()
		if len(title) > 0 {
			line.SetGlobalOptions(
				charts.WithTitleOpts(opts.Title{
					Title: title,
				}),
			)
		}
		line.SetGlobalOptions(
			charts.WithXAxisOpts(opts.XAxis{
				Name: "Iteration",
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Name: "Duration (us)",
			}),
		)

		line.SetXAxis(keys)
		for i, run := range runs {
			line.AddSeries(fmt.Sprintf("Run %d", i), generateDurationItems(run, size))
		}
		if plotUsage {
			line.AddSeries("CPU (%)", generateUsageItems(runs, size, func(s sample) float64 {
				return s.Cpu
			}))
			line.AddSeries("Memory (%)", generateUsageItems(runs, size, func(s sample) float64 {
				return s.Memory
			}))
		}

		if err := line.Render(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
