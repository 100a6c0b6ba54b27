package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/radio"
	"github.com/chzchzchz/freqshow/store"
)

var (
	recordFrames int
	recordIQ     string
	framesLimit  int
)

func init() {
	recordCmd := &cobra.Command{
		Use:   "record [flags]",
		Short: "Record acquired frames to the frame store",
		Run: func(cmd *cobra.Command, args []string) {
			if err := record(cmd); err != nil {
				glog.Exit(err)
			}
		},
	}
	recordCmd.Flags().IntVarP(&recordFrames, "frames", "n", 0, "Frames to record (0 until interrupted)")
	recordCmd.Flags().StringVar(&recordIQ, "iq", "", "Also capture raw samples as iq8 or wav")
	rootCmd.AddCommand(recordCmd)

	framesCmd := &cobra.Command{
		Use:   "frames [session]",
		Short: "List recording sessions or the frames of one",
		Args:  cobra.MaximumNArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { listFrames(cmd, args) },
	}
	framesCmd.Flags().IntVarP(&framesLimit, "limit", "n", -1, "Frames to list (-1 for all)")
	rootCmd.AddCommand(framesCmd)
}

func record(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("bad configuration: %w", err)
	}

	r := &recorder{retune: cfg.Apply, format: recordIQ}
	var wrap func(radio.Tuner) radio.Tuner
	if recordIQ != "" {
		if r.files, err = store.NewFileStore(cfg.Storage.Directory); err != nil {
			return err
		}
		wrap = func(t radio.Tuner) radio.Tuner {
			r.tee = radio.Tee(t, nil)
			return r.tee
		}
	}
	if r.m, err = openModel(ctx, cfg, wrap); err != nil {
		return err
	}
	defer r.m.Close()

	if r.fs, err = openFrameStore(cfg); err != nil {
		return fmt.Errorf("opening frame store: %w", err)
	}
	defer r.fs.Close()
	if r.session, err = r.fs.StartSession(ctx, cfg.Device); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	fmt.Println(r.session)

	defer func() {
		if err := r.Close(); err != nil {
			glog.Error(err)
		}
	}()
	return r.run(ctx, recordFrames)
}

// recorder stores acquired frames in a session. With a tee it also captures
// the raw samples to a recording named after the tuning they were taken at.
type recorder struct {
	m       *freqshow.Model
	fs      *store.FrameStore
	session string
	// retune restores the wanted tuning after a hardware failure reset it.
	retune func(*freqshow.Model) error

	files   *store.FileStore
	format  string
	tee     *radio.TeeTuner
	rec     *store.Recording
	recBand radio.HzBand
}

func (r *recorder) run(ctx context.Context, n int) error {
	for i := 0; (n == 0 || i < n) && ctx.Err() == nil; i++ {
		if err := r.capture(); err != nil {
			return err
		}
		frame, err := r.m.Acquire()
		if err != nil {
			glog.Errorf("frame %d: %v", i, err)
			if err := r.retune(r.m); err != nil {
				return fmt.Errorf("restoring tuning: %w", err)
			}
			continue
		}
		f := &store.Frame{Session: r.session, Band: r.m.Band(), Gain: r.m.GainString(), Bins: frame}
		if _, err := r.fs.Record(ctx, f); err != nil {
			return fmt.Errorf("storing frame %d: %w", i, err)
		}
	}
	return nil
}

// capture points the tee at a recording for the model's current band,
// starting a new one when the band moved.
func (r *recorder) capture() error {
	if r.tee == nil {
		return nil
	}
	hzb := r.m.Band().ToHzBand()
	if r.rec != nil && hzb == r.recBand {
		return nil
	}
	if err := r.Close(); err != nil {
		return err
	}
	rec, err := r.files.CreateRecording(hzb, r.format)
	if err != nil {
		return err
	}
	glog.Infof("capturing samples to %s", rec.Path())
	r.rec, r.recBand = rec, hzb
	r.tee.SetWriter(rec.IQWriter)
	return nil
}

// Close finishes the current recording, if any.
func (r *recorder) Close() error {
	if r.rec == nil {
		return nil
	}
	r.tee.SetWriter(nil)
	rec := r.rec
	r.rec = nil
	if err := rec.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", rec.Path(), err)
	}
	return nil
}

func listFrames(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		glog.Exitf("bad configuration: %v", err)
	}
	fs, err := openFrameStore(cfg)
	if err != nil {
		glog.Exitf("opening frame store: %v", err)
	}
	defer fs.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	defer tw.Flush()
	if len(args) == 0 {
		sessions, err := fs.Sessions(ctx)
		if err != nil {
			glog.Exit(err)
		}
		fmt.Fprintln(tw, "SESSION\tDEVICE\tSTART\tFRAMES")
		for _, s := range sessions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ID, s.Device, s.Start.Format(time.DateTime), s.Frames)
		}
		return
	}
	frames, err := fs.Frames(ctx, args[0], framesLimit)
	if err != nil {
		glog.Exit(err)
	}
	fmt.Fprintln(tw, "ID\tTIME\tCENTER\tSPAN\tGAIN\tMIN\tMAX")
	for _, f := range frames {
		lo, hi := f.MinMax()
		fmt.Fprintf(tw, "%d\t%s\t%.4fMHz\t%.3fMHz\t%s\t%.1f\t%.1f\n",
			f.ID, f.Time.Format(time.TimeOnly+".000"), f.Band.Center, f.Band.Width, f.Gain, lo, hi)
	}
}
