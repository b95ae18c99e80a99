package trace

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/dirty"
	"github.com/joshuapare/heapkit/heap/region"
	"github.com/joshuapare/heapkit/heap/verify"
)

func loadTestdata(t *testing.T) []*Trace {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "*.rep"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	traces := make([]*Trace, 0, len(paths))
	for _, p := range paths {
		tr, err := LoadFile(p)
		require.NoError(t, err, p)
		traces = append(traces, tr)
	}
	return traces
}

func mustParse(t *testing.T, src string) *Trace {
	t.Helper()
	tr, err := Parse(strings.NewReader(src), "inline")
	require.NoError(t, err)
	return tr
}

func TestParse(t *testing.T) {
	tr, err := LoadFile(filepath.Join("testdata", "realloc.rep"))
	require.NoError(t, err)

	require.Equal(t, "realloc.rep", tr.Name)
	require.Equal(t, 100000, tr.SuggestedHeap)
	require.Equal(t, 2, tr.NumIDs)
	require.Equal(t, 1, tr.Weight)
	require.Len(t, tr.Ops, 11)
	require.Equal(t, Op{Kind: OpAlloc, ID: 0, Size: 100, Line: 6}, tr.Ops[0])
	require.Equal(t, Op{Kind: OpRealloc, ID: 0, Size: 0, Line: 13}, tr.Ops[7])
	require.Equal(t, OpFree, tr.Ops[10].Kind)
	require.Equal(t, "f 0", tr.Ops[10].String())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"truncated header", "100\n2\n", "truncated header"},
		{"bad header", "100\nx\n1\n1\n", "header value"},
		{"unknown op", "100\n1\n1\n1\nx 0 8\n", "unknown op"},
		{"id out of range", "100\n1\n1\n1\na 1 8\n", "bad block id"},
		{"negative size", "100\n1\n1\n1\na 0 -8\n", "bad size"},
		{"free with size", "100\n1\n1\n1\nf 0 8\n", "takes 1 fields"},
		{"op count", "100\n1\n2\n1\na 0 8\n", "declares 2 ops, found 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src), "bad")
			require.ErrorIs(t, err, ErrSyntax)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestReplay_Testdata(t *testing.T) {
	for _, tr := range loadTestdata(t) {
		t.Run(tr.Name, func(t *testing.T) {
			res, err := Replay(context.Background(), tr, Options{Validate: true})
			require.NoError(t, err)
			require.Equal(t, len(tr.Ops), res.Ops)
			require.Positive(t, res.PeakPayload)
			require.Greater(t, res.Utilization(), 0.0)
			require.LessOrEqual(t, res.Utilization(), 1.0)
		})
	}
}

func TestReplay_PeakPayload(t *testing.T) {
	tr, err := LoadFile(filepath.Join("testdata", "coalesce.rep"))
	require.NoError(t, err)

	res, err := Replay(context.Background(), tr, Options{Validate: true})
	require.NoError(t, err)
	require.Equal(t, 400, res.PeakPayload)
	require.Equal(t, 2, res.Weight)
}

func TestReplay_AlreadyLive(t *testing.T) {
	tr := mustParse(t, "100\n1\n2\n1\na 0 8\na 0 8\n")

	_, err := Replay(context.Background(), tr, Options{})
	var rerr *ReplayError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, 1, rerr.Index)
	require.Equal(t, 6, rerr.Op.Line)
	require.Contains(t, err.Error(), "already live")
}

func TestReplay_OutOfMemory(t *testing.T) {
	tr := mustParse(t, "100\n1\n1\n1\na 0 4096\n")

	_, err := Replay(context.Background(), tr, Options{MaxHeap: 1024})
	require.ErrorIs(t, err, alloc.ErrNoSpace)
}

func TestReplay_Cancelled(t *testing.T) {
	tr := mustParse(t, "100\n1\n1\n1\na 0 8\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Replay(ctx, tr, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReplay_Image(t *testing.T) {
	tr, err := LoadFile(filepath.Join("testdata", "short1.rep"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "short1.heap")

	res, err := Replay(context.Background(), tr, Options{MaxHeap: 1 << 20, Image: path})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, res.HeapSize)

	l, err := alloc.ImageLayout(data, nil)
	require.NoError(t, err)
	require.NoError(t, verify.Check(l, nil))
}

type rangeRecorder struct {
	ranges []dirty.Range
}

func (r *rangeRecorder) Add(off, length int) {
	r.ranges = append(r.ranges, dirty.Range{Off: off, Len: length})
}

func TestReplay_PayloadMarkedDirty(t *testing.T) {
	rec := &rangeRecorder{}
	r := region.NewMemory(0)
	a, err := alloc.New(r, rec, nil)
	require.NoError(t, err)

	rp := &replayer{a: a, r: r, dt: rec, live: make([]liveBlock, 2)}
	require.NoError(t, rp.step(Op{Kind: OpAlloc, ID: 1, Size: 5000}))

	p := rp.live[1].p
	require.NotEqual(t, alloc.Nil, p)
	require.Contains(t, rec.ranges, dirty.Range{Off: int(p), Len: 5000})

	// Freed blocks need no payload flush.
	rec.ranges = nil
	require.NoError(t, rp.step(Op{Kind: OpFree, ID: 1}))
	for _, rg := range rec.ranges {
		require.NotEqual(t, 5000, rg.Len)
	}
}

func TestReplayAll(t *testing.T) {
	traces := loadTestdata(t)

	results, err := ReplayAll(context.Background(), traces, Options{Validate: true})
	require.NoError(t, err)
	require.Len(t, results, len(traces))
	for i, r := range results {
		require.Equal(t, traces[i].Name, r.Name)
	}
}

func TestReplayAll_FirstFailure(t *testing.T) {
	traces := append(loadTestdata(t), mustParse(t, "100\n1\n1\n1\na 0 1048576\n"))

	_, err := ReplayAll(context.Background(), traces, Options{MaxHeap: 64 << 10})
	require.ErrorIs(t, err, alloc.ErrNoSpace)

	_, err = ReplayAll(context.Background(), traces, Options{Image: "x.heap"})
	require.ErrorContains(t, err, "single trace")
}

func TestIntervals(t *testing.T) {
	var s intervals
	require.NoError(t, s.insert(0, 8, 0))
	require.NoError(t, s.insert(16, 24, 1))
	require.NoError(t, s.insert(8, 16, 2))
	require.Equal(t, 3, s.len())

	require.ErrorContains(t, s.insert(4, 12, 3), "overlaps block 0")
	require.ErrorContains(t, s.insert(12, 20, 3), "overlaps block 2")
	require.ErrorContains(t, s.insert(16, 17, 3), "overlaps block 1")

	s.remove(8)
	require.NoError(t, s.insert(8, 16, 3))
	s.remove(100)
	require.Equal(t, 3, s.len())
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Ops: 10, Weight: 1, PeakPayload: 50, HeapSize: 100, Elapsed: time.Second},
		{Ops: 30, Weight: 3, PeakPayload: 100, HeapSize: 100, Elapsed: time.Second},
	}
	s := Summarize(results)
	require.Equal(t, 2, s.Traces)
	require.Equal(t, 40, s.Ops)
	require.InDelta(t, 0.875, s.Utilization, 1e-9)
	require.InDelta(t, 20.0, s.Throughput, 1e-9)
}

func TestWriteReport(t *testing.T) {
	results := []Result{{
		Name:        "big.rep",
		Ops:         12345,
		PeakPayload: 524288,
		HeapSize:    1048576,
		Elapsed:     time.Second,
	}}

	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, results))
	require.Contains(t, out.String(), "12,345")
	require.Contains(t, out.String(), "1,048,576")
	require.Contains(t, out.String(), "50.0%")
	require.Contains(t, out.String(), "total")
}
