package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
)

var (
	runValidate bool
	runMaxHeap  int
	runChunk    int
	runImage    string
	runStats    bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().BoolVar(&runValidate, "validate", false, "Check the whole heap after every operation")
	cmd.Flags().IntVar(&runMaxHeap, "max-heap", 0, "Region reservation in bytes (default 20 MiB)")
	cmd.Flags().IntVar(&runChunk, "chunk", 0, "Minimum growth in bytes (default 168)")
	cmd.Flags().StringVar(&runImage, "image", "", "Replay into a file-backed heap image at this path")
	cmd.Flags().BoolVar(&runStats, "stats", false, "Include allocator counters in the output")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace|dir>...",
		Short: "Replay allocation traces",
		Long: `The run command replays one or more trace files against a fresh
allocator each, in parallel. Directories are expanded to their *.rep files.

Every payload is checked for alignment, bounds and overlap with other live
payloads, and its contents must survive until it is resized or freed.

Example:
  heapctl run traces/
  heapctl run traces/binary.rep --validate
  heapctl run traces/short1.rep --image short1.heap
  heapctl run traces/ --classes FineGrained --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args)
		},
	}
	return cmd
}

func runRun(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	paths, err := expandTraces(args)
	if err != nil {
		return err
	}
	traces := make([]*trace.Trace, 0, len(paths))
	for _, p := range paths {
		t, err := trace.LoadFile(p)
		if err != nil {
			return err
		}
		log.Debug("loaded trace", "path", p, "ops", len(t.Ops), "ids", t.NumIDs)
		traces = append(traces, t)
	}

	opts, err := replayOptions()
	if err != nil {
		return err
	}
	opts.Image = runImage

	results, err := trace.ReplayAll(ctx, traces, opts)
	if err != nil {
		return err
	}
	if runImage != "" {
		printVerbose("Heap image written to %s\n", runImage)
	}

	return printResults(results)
}

// replayOptions builds replay options from the shared flags.
func replayOptions() (trace.Options, error) {
	classes, err := sizeClasses()
	if err != nil {
		return trace.Options{}, err
	}
	return trace.Options{
		MaxHeap:  runMaxHeap,
		Validate: runValidate,
		Config: &alloc.Config{
			ChunkSize: runChunk,
			Classes:   classes,
		},
	}, nil
}

func printResults(results []trace.Result) error {
	if jsonOut {
		out := map[string]interface{}{
			"results": results,
			"summary": trace.Summarize(results),
		}
		return printJSON(out)
	}
	if quiet {
		return nil
	}

	if err := trace.WriteReport(os.Stdout, results); err != nil {
		return err
	}
	if runStats {
		for _, r := range results {
			s := r.Stats
			printInfo("\n%s:\n", r.Name)
			printInfo("  grow calls %d (%d bytes), allocs %d (fast %d, slow %d), frees %d\n",
				s.GrowCalls, s.GrowBytes, s.AllocCalls, s.AllocFastPath, s.AllocSlowPath, s.FreeCalls)
			printInfo("  splits %d, coalesce fwd %d, back %d\n",
				s.SplitCount, s.CoalesceForward, s.CoalesceBackward)
		}
	}
	return nil
}

// expandTraces replaces directories with the trace files they contain.
func expandTraces(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*"+traceExt))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no %s files in %s", traceExt, arg)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

const traceExt = ".rep"

func isTrace(path string) bool {
	return strings.HasSuffix(path, traceExt)
}
