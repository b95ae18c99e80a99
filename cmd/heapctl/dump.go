package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/heap/verify"
)

var dumpFreeOnly bool

func init() {
	cmd := newDumpCmd()
	cmd.Flags().BoolVar(&dumpFreeOnly, "free", false, "Only list free blocks")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <image>",
		Short: "List the blocks of a heap image",
		Long: `The dump command walks a heap image in address order and prints one line
per block, followed by the length of every free list.

Example:
  heapctl dump short1.heap
  heapctl dump short1.heap --free
  heapctl dump short1.heap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	return cmd
}

type dumpBlock struct {
	Offset    int  `json:"offset"`
	Size      int  `json:"size"`
	Allocated bool `json:"allocated"`
	PrevAlloc bool `json:"prev_allocated"`
}

type dumpList struct {
	Class  int `json:"class"`
	Lo     int `json:"lo"`
	Hi     int `json:"hi"` // -1 = unbounded
	Blocks int `json:"blocks"`
}

func runDump(args []string) error {
	l, im, err := openImage(args[0])
	if err != nil {
		return err
	}
	defer im.Close()

	var blocks []dumpBlock
	err = verify.Walk(l, func(b verify.BlockInfo) error {
		if dumpFreeOnly && b.Allocated {
			return nil
		}
		blocks = append(blocks, dumpBlock{b.Off, b.Size, b.Allocated, b.PrevAllocated})
		return nil
	})
	if err != nil {
		return err
	}
	lists, err := freeLists(l)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"file":   args[0],
			"blocks": blocks,
			"lists":  lists,
		})
	}

	printInfo("%-12s %10s  %s\n", "offset", "size", "state")
	for _, b := range blocks {
		tag := block.Pack(b.Size, b.PrevAlloc, b.Allocated)
		printInfo("0x%-10X %10d  %v\n", b.Offset, b.Size, tag)
	}
	printInfo("\nFree lists:\n")
	for _, fl := range lists {
		if fl.Blocks == 0 && !verbose {
			continue
		}
		if fl.Hi < 0 {
			printInfo("  [%2d] (%d, inf): %d\n", fl.Class, fl.Lo, fl.Blocks)
			continue
		}
		printInfo("  [%2d] (%d, %d]: %d\n", fl.Class, fl.Lo, fl.Hi, fl.Blocks)
	}
	return nil
}

// freeLists counts the members of every list. The lists are validated first
// so a corrupt image cannot send the walk out of bounds.
func freeLists(l verify.Layout) ([]dumpList, error) {
	if _, err := verify.FreeLists(l, nil); err != nil {
		return nil, err
	}
	lists := make([]dumpList, l.NumClasses())
	for c := range lists {
		lo, hi := l.ClassRange(c)
		lists[c] = dumpList{Class: c, Lo: lo, Hi: hi}
		for bp := l.ListHead(c); bp != 0; bp = block.NextFree(l.Data, bp) {
			lists[c].Blocks++
		}
	}
	return lists, nil
}
