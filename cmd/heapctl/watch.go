package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/trace"
)

func init() {
	cmd := newWatchCmd()
	cmd.Flags().BoolVar(&runValidate, "validate", false, "Check the whole heap after every operation")
	cmd.Flags().IntVar(&runMaxHeap, "max-heap", 0, "Region reservation in bytes (default 20 MiB)")
	rootCmd.AddCommand(cmd)
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir|trace>...",
		Short: "Replay traces whenever they change",
		Long: `The watch command replays every trace once, then watches the given files
and directories and replays a trace each time it is created or written.
Stop with Ctrl-C.

Example:
  heapctl watch traces/
  heapctl watch traces/binary.rep --validate`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, args)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, args []string) error {
	opts, err := replayOptions()
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, arg := range args {
		if err := w.Add(arg); err != nil {
			return err
		}
	}

	paths, err := expandTraces(args)
	if err != nil {
		return err
	}
	for _, p := range paths {
		replayOne(ctx, p, opts)
	}

	printInfo("Watching %d path(s) for trace changes\n", len(args))
	return watchLoop(ctx, w, func(path string) {
		replayOne(ctx, path, opts)
	})
}

// watchLoop calls onChange for every trace file created or written until ctx
// is done or the watcher closes.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, onChange func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isTrace(ev.Name) {
				continue
			}
			log.Debug("trace changed", "path", ev.Name, "op", ev.Op.String())
			onChange(ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		}
	}
}

// replayOne replays a single trace and reports the result. Failures are
// logged, not returned, so the watch keeps running.
func replayOne(ctx context.Context, path string, opts trace.Options) {
	t, err := trace.LoadFile(path)
	if err != nil {
		log.Error("load trace", "path", filepath.Base(path), "err", err)
		return
	}
	res, err := trace.Replay(ctx, t, opts)
	if err != nil {
		log.Error("replay failed", "trace", t.Name, "err", err)
		return
	}
	if err := printResults([]trace.Result{res}); err != nil {
		log.Error("report", "err", err)
	}
}
