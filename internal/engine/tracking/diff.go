package tracking

import (
	"strconv"
	"strings"
)

// DefaultMaxDiffLines is the line count above which Compute stops using Myers.
const DefaultMaxDiffLines = 10000

// DiffOptions configures diff computation.
type DiffOptions struct {
	// ContextLines is the number of unchanged lines kept around each change.
	ContextLines int

	// IgnoreCase performs case-insensitive comparison.
	IgnoreCase bool

	// IgnoreWhitespace ignores leading/trailing whitespace on each line.
	IgnoreWhitespace bool

	// MaxLines limits the input size for the Myers algorithm.
	// Zero means DefaultMaxDiffLines.
	MaxLines int
}

// DefaultDiffOptions returns default diff options.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		ContextLines: 3,
		MaxLines:     DefaultMaxDiffLines,
	}
}

// DiffType classifies a hunk.
type DiffType uint8

const (
	// DiffEqual indicates unchanged lines.
	DiffEqual DiffType = iota

	// DiffInsert indicates a hunk that only adds lines.
	DiffInsert

	// DiffDelete indicates a hunk that only removes lines.
	DiffDelete

	// DiffReplace indicates a hunk that both removes and adds lines.
	DiffReplace
)

// String returns a human-readable representation of the diff type.
func (dt DiffType) String() string {
	switch dt {
	case DiffEqual:
		return "equal"
	case DiffInsert:
		return "insert"
	case DiffDelete:
		return "delete"
	case DiffReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name.
func (dt DiffType) MarshalText() ([]byte, error) {
	return []byte(dt.String()), nil
}

// LineDiff is one hunk of a diff.
type LineDiff struct {
	Type DiffType `json:"type"`

	// OldStart and NewStart are 0-indexed line numbers of the first hunk line.
	OldStart int `json:"old_start"`
	OldCount int `json:"old_count"`
	NewStart int `json:"new_start"`
	NewCount int `json:"new_count"`

	// Lines are prefixed with ' ', '-' or '+'.
	Lines []string `json:"lines"`
}

// IsEmpty returns true if this hunk has no lines.
func (ld LineDiff) IsEmpty() bool {
	return len(ld.Lines) == 0
}

// DiffResult is the complete result of a diff.
type DiffResult struct {
	Hunks        []LineDiff `json:"hunks"`
	OldLineCount int        `json:"old_line_count"`
	NewLineCount int        `json:"new_line_count"`
}

// HasChanges returns true if there are any differences.
func (dr DiffResult) HasChanges() bool {
	for _, hunk := range dr.Hunks {
		if hunk.Type != DiffEqual {
			return true
		}
	}
	return false
}

// InsertedLines returns the total number of inserted lines.
func (dr DiffResult) InsertedLines() int {
	return dr.countPrefix('+')
}

// DeletedLines returns the total number of deleted lines.
func (dr DiffResult) DeletedLines() int {
	return dr.countPrefix('-')
}

func (dr DiffResult) countPrefix(p byte) int {
	count := 0
	for _, hunk := range dr.Hunks {
		for _, line := range hunk.Lines {
			if len(line) > 0 && line[0] == p {
				count++
			}
		}
	}
	return count
}

// Compute returns the line diff from oldStr to newStr.
func Compute(oldStr, newStr string, opts DiffOptions) DiffResult {
	oldLines := splitLines(oldStr)
	newLines := splitLines(newStr)

	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxDiffLines
	}

	var ops []editOp
	if len(oldLines) > maxLines || len(newLines) > maxLines {
		ops = trimDiff(oldLines, newLines, opts)
	} else {
		ops = myersDiff(oldLines, newLines, opts)
	}

	return DiffResult{
		Hunks:        buildHunks(oldLines, newLines, ops, opts.ContextLines),
		OldLineCount: len(oldLines),
		NewLineCount: len(newLines),
	}
}

// splitLines splits on "\n". The empty string has no lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// editOp is a single step of an edit script. Both indexes are always set:
// for an insert oldIndex is the old position the line goes before, for a
// delete newIndex is the matching new position.
type editOp struct {
	op       DiffType
	oldIndex int
	newIndex int
}

// trimDiff strips the common prefix and suffix and reports everything in
// between as deleted then inserted.
func trimDiff(oldLines, newLines []string, opts DiffOptions) []editOp {
	n, m := len(oldLines), len(newLines)

	prefix := 0
	for prefix < n && prefix < m && linesEqual(oldLines[prefix], newLines[prefix], opts) {
		prefix++
	}
	suffix := 0
	for suffix < n-prefix && suffix < m-prefix &&
		linesEqual(oldLines[n-1-suffix], newLines[m-1-suffix], opts) {
		suffix++
	}

	ops := make([]editOp, 0, n+m-prefix-suffix)
	for i := 0; i < prefix; i++ {
		ops = append(ops, editOp{op: DiffEqual, oldIndex: i, newIndex: i})
	}
	for i := prefix; i < n-suffix; i++ {
		ops = append(ops, editOp{op: DiffDelete, oldIndex: i, newIndex: prefix})
	}
	for j := prefix; j < m-suffix; j++ {
		ops = append(ops, editOp{op: DiffInsert, oldIndex: n - suffix, newIndex: j})
	}
	for k := suffix; k > 0; k-- {
		ops = append(ops, editOp{op: DiffEqual, oldIndex: n - k, newIndex: m - k})
	}
	return ops
}

// myersDiff implements the Myers O(ND) diff algorithm.
func myersDiff(oldLines, newLines []string, opts DiffOptions) []editOp {
	n := len(oldLines)
	m := len(newLines)

	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		ops := make([]editOp, m)
		for j := 0; j < m; j++ {
			ops[j] = editOp{op: DiffInsert, newIndex: j}
		}
		return ops
	}
	if m == 0 {
		ops := make([]editOp, n)
		for i := 0; i < n; i++ {
			ops[i] = editOp{op: DiffDelete, oldIndex: i}
		}
		return ops
	}

	maxD := n + m
	offset := maxD // V[-max..max] maps to slice[0..2*max]
	v := make([]int, 2*maxD+1)

	var trace [][]int

outer:
	for d := 0; d <= maxD; d++ {
		// State before this round is what backtracking needs
		vCopy := make([]int, len(v))
		copy(vCopy, v)
		trace = append(trace, vCopy)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k

			for x < n && y < m && linesEqual(oldLines[x], newLines[y], opts) {
				x++
				y++
			}
			v[offset+k] = x

			if x >= n && y >= m {
				vFinal := make([]int, len(v))
				copy(vFinal, v)
				trace = append(trace, vFinal)
				break outer
			}
		}
	}

	return backtrack(trace, n, m, offset)
}

// backtrack reconstructs the edit script from the Myers trace.
func backtrack(trace [][]int, n, m, offset int) []editOp {
	x, y := n, m
	var ops []editOp

	for d := len(trace) - 2; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			ops = append(ops, editOp{op: DiffEqual, oldIndex: x, newIndex: y})
		}

		if d > 0 {
			if x > prevX {
				x--
				ops = append(ops, editOp{op: DiffDelete, oldIndex: x, newIndex: y})
			} else if y > prevY {
				y--
				ops = append(ops, editOp{op: DiffInsert, oldIndex: x, newIndex: y})
			}
		}
	}

	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	return ops
}

func linesEqual(a, b string, opts DiffOptions) bool {
	if opts.IgnoreCase {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if opts.IgnoreWhitespace {
		a = strings.TrimSpace(a)
		b = strings.TrimSpace(b)
	}
	return a == b
}

// buildHunks groups an edit script into hunks. Changes separated by at most
// 2*contextLines unchanged lines share a hunk.
func buildHunks(oldLines, newLines []string, ops []editOp, contextLines int) []LineDiff {
	if contextLines < 0 {
		contextLines = 0
	}

	var hunks []LineDiff
	i := 0
	for i < len(ops) {
		for i < len(ops) && ops[i].op == DiffEqual {
			i++
		}
		if i == len(ops) {
			break
		}

		start := i - contextLines
		if start < 0 {
			start = 0
		}

		// Extend over changes and short equal runs
		end := i
		for end < len(ops) {
			if ops[end].op != DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(ops) && ops[run].op == DiffEqual {
				run++
			}
			if run == len(ops) || run-end > 2*contextLines {
				break
			}
			end = run
		}

		stop := end + contextLines
		if stop > len(ops) {
			stop = len(ops)
		}

		hunks = append(hunks, makeHunk(oldLines, newLines, ops[start:stop]))
		i = stop
	}
	return hunks
}

func makeHunk(oldLines, newLines []string, ops []editOp) LineDiff {
	hunk := LineDiff{
		Type:     DiffEqual,
		OldStart: ops[0].oldIndex,
		NewStart: ops[0].newIndex,
		Lines:    make([]string, 0, len(ops)),
	}

	var inserted, deleted bool
	for _, op := range ops {
		switch op.op {
		case DiffEqual:
			hunk.Lines = append(hunk.Lines, " "+oldLines[op.oldIndex])
			hunk.OldCount++
			hunk.NewCount++
		case DiffDelete:
			hunk.Lines = append(hunk.Lines, "-"+oldLines[op.oldIndex])
			hunk.OldCount++
			deleted = true
		case DiffInsert:
			hunk.Lines = append(hunk.Lines, "+"+newLines[op.newIndex])
			hunk.NewCount++
			inserted = true
		}
	}

	switch {
	case inserted && deleted:
		hunk.Type = DiffReplace
	case inserted:
		hunk.Type = DiffInsert
	case deleted:
		hunk.Type = DiffDelete
	}
	return hunk
}

// Unified returns the diff in unified diff format, or "" when there are no
// changes.
func Unified(result DiffResult, oldName, newName string) string {
	if !result.HasChanges() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("--- ")
	sb.WriteString(oldName)
	sb.WriteString("\n+++ ")
	sb.WriteString(newName)
	sb.WriteString("\n")

	for _, hunk := range result.Hunks {
		if hunk.Type == DiffEqual {
			continue
		}

		sb.WriteString("@@ -")
		writeRange(&sb, hunk.OldStart, hunk.OldCount)
		sb.WriteString(" +")
		writeRange(&sb, hunk.NewStart, hunk.NewCount)
		sb.WriteString(" @@\n")

		for _, line := range hunk.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// writeRange writes a 1-indexed "start,count". An empty range names the line
// before it, as diff(1) does.
func writeRange(sb *strings.Builder, start, count int) {
	if count > 0 {
		start++
	}
	sb.WriteString(strconv.Itoa(start))
	sb.WriteString(",")
	sb.WriteString(strconv.Itoa(count))
}
