package main

import (
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/store"
)

var (
	spectrogramOut  string
	spectrogramSave bool
)

func init() {
	spectrogramCmd := &cobra.Command{
		Use:   "spectrogram [flags]",
		Short: "Write a waterfall image of the band as jpeg",
		Run:   func(cmd *cobra.Command, args []string) { spectrogram(cmd) },
	}
	spectrogramCmd.Flags().StringVarP(&spectrogramOut, "output", "o", "-", "Output jpeg path")
	spectrogramCmd.Flags().BoolVar(&spectrogramSave, "save", false, "Save into the capture directory instead")
	rootCmd.AddCommand(spectrogramCmd)
}

func spectrogram(cmd *cobra.Command) {
	ctx := cmd.Context()
	cfg, m := setup(ctx, cmd, nil)
	defer m.Close()

	wf := freqshow.NewWaterfall(m.Width(), m.Height())
	for wf.Rows() < m.Height() && ctx.Err() == nil {
		frame, err := m.Acquire()
		if err != nil {
			glog.Exit(err)
		}
		wf.Push(frame, m.Scaling())
	}
	if err := wf.Annotate(m.Band()); err != nil {
		glog.Exit(err)
	}

	var out io.Writer = os.Stdout
	if spectrogramSave {
		files, err := store.NewFileStore(cfg.Storage.Directory)
		if err != nil {
			glog.Exit(err)
		}
		f, err := files.CreateSpectrogram(m.Band())
		if err != nil {
			glog.Exit(err)
		}
		defer f.Close()
		glog.Infof("writing %s", f.Name())
		out = f
	} else if spectrogramOut != "-" {
		f, err := os.OpenFile(spectrogramOut, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
		if err != nil {
			glog.Exit(err)
		}
		defer f.Close()
		out = f
	}
	if err := wf.WriteJPEG(out); err != nil {
		glog.Exit(err)
	}
}
