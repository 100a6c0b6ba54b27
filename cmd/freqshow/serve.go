package main

import (
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/chzchzchz/freqshow/http"
	"github.com/chzchzchz/freqshow/store"
)

var (
	listenAddr  string
	serveRecord bool
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tuner controls, frames and waterfall over http",
		Run:   func(cmd *cobra.Command, args []string) { serve(cmd) },
	}
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveRecord, "record", false, "Record every served frame")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command) {
	ctx := cmd.Context()
	cfg, m := setup(ctx, cmd, nil)
	defer m.Close()

	var opts []http.Option
	if bp := loadBandPlan(); bp != nil {
		opts = append(opts, http.WithBandPlan(bp))
	}
	files, err := store.NewFileStore(cfg.Storage.Directory)
	if err != nil {
		glog.Exitf("opening capture directory: %v", err)
	}
	opts = append(opts, http.WithFileStore(files))
	if serveRecord {
		fs, err := openFrameStore(cfg)
		if err != nil {
			glog.Exitf("opening frame store: %v", err)
		}
		defer fs.Close()
		session, err := fs.StartSession(ctx, cfg.Device)
		if err != nil {
			glog.Exitf("starting session: %v", err)
		}
		glog.Infof("recording frames to session %s", session)
		opts = append(opts, http.WithFrameStore(fs, session))
	}

	addr := cfg.Server.Listen
	if listenAddr != "" {
		addr = listenAddr
	}
	if err := http.NewServer(m, opts...).ListenAndServe(ctx, addr); err != nil {
		glog.Exit(err)
	}
}
