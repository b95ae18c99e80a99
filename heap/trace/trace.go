package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrSyntax indicates a malformed trace file.
var ErrSyntax = errors.New("trace: syntax error")

// OpKind identifies a trace operation.
type OpKind byte

const (
	OpAlloc   OpKind = 'a'
	OpRealloc OpKind = 'r'
	OpFree    OpKind = 'f'
)

func (k OpKind) String() string {
	switch k {
	case OpAlloc:
		return "alloc"
	case OpRealloc:
		return "realloc"
	case OpFree:
		return "free"
	default:
		return fmt.Sprintf("OpKind(%q)", byte(k))
	}
}

// Op is one trace operation.
type Op struct {
	Kind OpKind
	ID   int
	Size int // zero for OpFree
	Line int // source line, for error messages
}

func (o Op) String() string {
	if o.Kind == OpFree {
		return fmt.Sprintf("%c %d", o.Kind, o.ID)
	}
	return fmt.Sprintf("%c %d %d", o.Kind, o.ID, o.Size)
}

// Trace is a parsed trace file.
type Trace struct {
	Name          string
	SuggestedHeap int
	NumIDs        int
	Weight        int
	Ops           []Op
}

// LoadFile parses the trace at path. The trace is named after the file.
func LoadFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// Parse reads a trace from r.
func Parse(r io.Reader, name string) (*Trace, error) {
	t := &Trace{Name: name}
	sc := bufio.NewScanner(r)
	line := 0

	var header []int
	numOps := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if len(header) < 4 {
			n, err := strconv.Atoi(text)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%s:%d: %w: header value %q", name, line, ErrSyntax, text)
			}
			header = append(header, n)
			if len(header) == 4 {
				t.SuggestedHeap, t.NumIDs, numOps, t.Weight = header[0], header[1], header[2], header[3]
				t.Ops = make([]Op, 0, numOps)
			}
			continue
		}

		op, err := parseOp(text, line, t.NumIDs)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		t.Ops = append(t.Ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if len(header) < 4 {
		return nil, fmt.Errorf("%s: %w: truncated header", name, ErrSyntax)
	}
	if len(t.Ops) != numOps {
		return nil, fmt.Errorf("%s: %w: header declares %d ops, found %d", name, ErrSyntax, numOps, len(t.Ops))
	}
	return t, nil
}

func parseOp(text string, line, numIDs int) (Op, error) {
	fields := strings.Fields(text)
	if len(fields[0]) != 1 {
		return Op{}, fmt.Errorf("%w: unknown op %q", ErrSyntax, fields[0])
	}

	op := Op{Kind: OpKind(fields[0][0]), Line: line}
	want := 3
	switch op.Kind {
	case OpAlloc, OpRealloc:
	case OpFree:
		want = 2
	default:
		return Op{}, fmt.Errorf("%w: unknown op %q", ErrSyntax, fields[0])
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%w: %s takes %d fields, got %d", ErrSyntax, op.Kind, want-1, len(fields)-1)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 || id >= numIDs {
		return Op{}, fmt.Errorf("%w: bad block id %q (trace declares %d)", ErrSyntax, fields[1], numIDs)
	}
	op.ID = id

	if want == 3 {
		size, err := strconv.Atoi(fields[2])
		if err != nil || size < 0 {
			return Op{}, fmt.Errorf("%w: bad size %q", ErrSyntax, fields[2])
		}
		op.Size = size
	}
	return op, nil
}
