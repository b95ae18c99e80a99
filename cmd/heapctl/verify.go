package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/mmfile"
)

func init() {
	rootCmd.AddCommand(newVerifyCmd())
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <image>",
		Short: "Validate a heap image",
		Long: `The verify command maps a heap image read-only and checks every heap
invariant: prologue and epilogue, block tags, coalescing, free list links,
size classes and free block counts.

With --verbose, a block-by-block trace is printed.

Example:
  heapctl verify short1.heap
  heapctl verify short1.heap --classes FineGrained -v
  heapctl verify short1.heap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args)
		},
	}
	return cmd
}

func runVerify(args []string) error {
	path := args[0]
	printVerbose("Validating heap image: %s\n", path)

	l, im, err := openImage(path)
	if err != nil {
		return err
	}
	defer im.Close()

	var w io.Writer
	if verbose && !jsonOut {
		w = os.Stdout
	}
	err = verify.Check(l, w)

	if jsonOut {
		result := map[string]interface{}{
			"file":  path,
			"bytes": im.Len(),
			"valid": err == nil,
		}
		var verr *verify.ValidationError
		if errors.As(err, &verr) {
			result["error"] = verr.Error()
			result["check"] = verr.Type
			result["offset"] = verr.Offset
		} else if err != nil {
			result["error"] = err.Error()
		}
		if jerr := printJSON(result); jerr != nil {
			return jerr
		}
		return err
	}

	if err != nil {
		printInfo("Result: ✗ INVALID (%v)\n", err)
		return err
	}
	printInfo("Result: ✓ VALID (%d bytes)\n", im.Len())
	return nil
}

// openImage maps a heap image and describes it using the --classes layout.
func openImage(path string) (verify.Layout, *mmfile.Image, error) {
	classes, err := sizeClasses()
	if err != nil {
		return verify.Layout{}, nil, err
	}
	im, err := mmfile.Open(path)
	if err != nil {
		return verify.Layout{}, nil, err
	}
	l, err := alloc.ImageLayout(im.Bytes(), classes)
	if err != nil {
		im.Close()
		return verify.Layout{}, nil, err
	}
	log.Debug("mapped heap image", "path", path, "bytes", im.Len(), "classes", classes.Name)
	return l, im, nil
}
