package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/chzchzchz/freqshow/dsp"
	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/store"
)

var (
	watchFrames   int
	watchCount    int
	watchInterval time.Duration
)

func init() {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print peaks above the noise floor",
		Run:   func(cmd *cobra.Command, args []string) { watch(cmd) },
	}
	watchCmd.Flags().IntVarP(&watchFrames, "frames", "n", 16, "Frames averaged per report")
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "Reports to print (0 for no limit)")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", time.Second, "Time between reports")
	rootCmd.AddCommand(watchCmd)
}

func watch(cmd *cobra.Command) {
	ctx := cmd.Context()
	_, m := setup(ctx, cmd, nil)
	defer m.Close()
	bp := loadBandPlan()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for i := 0; watchCount == 0 || i < watchCount; i++ {
		p := dsp.NewPower(m.Width())
		for j := 0; j < watchFrames; j++ {
			frame, err := m.Acquire()
			if err != nil {
				var herr *freqshow.HardwareError
				if !errors.As(err, &herr) {
					glog.Exit(err)
				}
				glog.Warningf("%v; tuner reset to defaults", err)
				continue
			}
			p.Add(frame)
		}
		printPeaks(m, p, bp)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func printPeaks(m *freqshow.Model, p *dsp.Power, bp *store.BandPlan) {
	band, cols := m.Band(), m.Width()
	floor := p.NoiseFloor()
	fmt.Printf("%s %.4fMHz floor %.1fdB\n", time.Now().Format(time.TimeOnly), band.Center, floor)
	if math.IsInf(floor, 0) {
		return
	}
	avg := p.Average()
	for _, i := range p.Peaks() {
		mhz := band.ColumnMHz(i, cols) + band.Width/float64(2*cols)
		name := ""
		if bp != nil {
			if rec, ok := bp.Lookup(mhz); ok {
				name = rec.Name
			}
		}
		fmt.Printf("  %10.4fMHz %+6.1fdB %s\n", mhz, avg[i]-floor, name)
	}
}
