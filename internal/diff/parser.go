package diff

import (
	"strconv"
	"strings"
)

// LineType represents the type of a line in a diff hunk.
type LineType int

const (
	// LineContext represents an unchanged context line (starts with ' ').
	LineContext LineType = iota
	// LineAddition represents an added line (starts with '+').
	LineAddition
	// LineDeletion represents a deleted line (starts with '-').
	LineDeletion
)

// Line represents a single line inside a hunk.
type Line struct {
	Type     LineType
	Content  string
	OldLine  *int // line number in the old file; nil for additions
	NewLine  *int // line number in the new file; nil for deletions
	Position int  // position within the file's diff, 1-indexed from the hunk header
}

// Hunk represents a single "@@ ... @@" section of a file's diff.
type Hunk struct {
	OldStart        int
	OldLines        int
	NewStart        int
	NewLines        int
	HeaderText      string
	EnclosingSymbol string // trailing context after the second "@@", e.g. a function signature
	headerPosition  int
	Lines           []Line
}

// HeaderPosition returns the diff position of this hunk's own "@@ ... @@"
// header line, which GitHub counts as position 1 of the hunk.
func (h Hunk) HeaderPosition() int {
	return h.headerPosition
}

// FileDiff is the parsed diff for a single file within a pull request.
type FileDiff struct {
	OldPath string
	NewPath string
	Binary  bool
	Renamed bool
	Hunks   []Hunk
}

// ParsedDiff is the parsed diff across every file changed by a pull
// request, keyed for lookup by the new (post-change) path.
type ParsedDiff struct {
	Files []FileDiff
}

// Parse parses a multi-file unified diff, such as the concatenated
// output of GitHub's compare API or a `git diff` between two commits.
func Parse(patch string) (ParsedDiff, error) {
	if patch == "" {
		return ParsedDiff{}, nil
	}

	lines := strings.Split(patch, "\n")
	result := ParsedDiff{}

	var file *FileDiff
	var hunk *Hunk
	position := 0
	currentOldLine := 0
	currentNewLine := 0

	flushHunk := func() {
		if file != nil && hunk != nil {
			file.Hunks = append(file.Hunks, *hunk)
			hunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if file != nil {
			result.Files = append(result.Files, *file)
			file = nil
		}
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flushFile()
			file = &FileDiff{}
			position = 0
			continue
		case strings.HasPrefix(line, "Binary files "):
			if file != nil {
				file.Binary = true
			}
			continue
		case strings.HasPrefix(line, "rename from "):
			if file != nil {
				file.Renamed = true
				file.OldPath = strings.TrimPrefix(line, "rename from ")
			}
			continue
		case strings.HasPrefix(line, "rename to "):
			if file != nil {
				file.Renamed = true
				file.NewPath = strings.TrimPrefix(line, "rename to ")
			}
			continue
		case strings.HasPrefix(line, "index "):
			continue
		case strings.HasPrefix(line, "--- "):
			if file != nil {
				file.OldPath = trimGitPathPrefix(strings.TrimPrefix(line, "--- "))
			}
			continue
		case strings.HasPrefix(line, "+++ "):
			if file != nil {
				file.NewPath = trimGitPathPrefix(strings.TrimPrefix(line, "+++ "))
			}
			continue
		case strings.HasPrefix(line, "\\ "):
			continue
		}

		if strings.HasPrefix(line, "@@") {
			flushHunk()
			if file == nil {
				file = &FileDiff{}
			}
			h, ok := parseHunkHeader(line)
			if !ok {
				continue
			}
			position++
			h.headerPosition = position
			hunk = &h
			currentOldLine = h.OldStart
			currentNewLine = h.NewStart
			continue
		}

		if hunk == nil {
			continue
		}
		if line == "" {
			continue
		}

		position++
		diffLine := Line{Position: position}

		switch line[0] {
		case '+':
			diffLine.Type = LineAddition
			diffLine.Content = line[1:]
			diffLine.NewLine = intPtr(currentNewLine)
			currentNewLine++
		case '-':
			diffLine.Type = LineDeletion
			diffLine.Content = line[1:]
			diffLine.OldLine = intPtr(currentOldLine)
			currentOldLine++
		case ' ':
			diffLine.Type = LineContext
			diffLine.Content = line[1:]
			diffLine.OldLine = intPtr(currentOldLine)
			diffLine.NewLine = intPtr(currentNewLine)
			currentOldLine++
			currentNewLine++
		default:
			diffLine.Type = LineContext
			diffLine.Content = line
			diffLine.OldLine = intPtr(currentOldLine)
			diffLine.NewLine = intPtr(currentNewLine)
			currentOldLine++
			currentNewLine++
		}

		hunk.Lines = append(hunk.Lines, diffLine)
	}

	flushFile()
	return result, nil
}

// trimGitPathPrefix strips the "a/" or "b/" prefix git adds to paths in
// the --- and +++ header lines, and normalizes "/dev/null" to empty.
func trimGitPathPrefix(p string) string {
	p = strings.TrimSuffix(p, "\t")
	if p == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// File returns the FileDiff for the given new-side path, or nil if the
// path was not touched by this diff.
func (pd ParsedDiff) File(path string) *FileDiff {
	for i := range pd.Files {
		if pd.Files[i].NewPath == path {
			return &pd.Files[i]
		}
	}
	return nil
}

// FindPosition returns the diff position for a given new-side line
// number in this file, or nil if the line falls outside any hunk (an
// unchanged region of the file the diff never mentions).
func (fd FileDiff) FindPosition(newLineNumber int) *int {
	if newLineNumber <= 0 {
		return nil
	}
	for _, h := range fd.Hunks {
		for _, line := range h.Lines {
			if line.NewLine != nil && *line.NewLine == newLineNumber {
				return intPtr(line.Position)
			}
		}
	}
	return nil
}

// LineToPosition builds the full new-line-number to diff-position map
// for this file in one pass, the precomputed equivalent of repeated
// FindPosition calls. Only commentable lines (additions and context)
// are present, matching FindPosition's semantics.
func (fd FileDiff) LineToPosition() map[int]int {
	out := make(map[int]int)
	for _, h := range fd.Hunks {
		for _, line := range h.Lines {
			if line.NewLine != nil {
				out[*line.NewLine] = line.Position
			}
		}
	}
	return out
}

// Hunk returns the hunk containing the given diff position, or nil.
// Used to enforce the "suggestion spans a single hunk" invariant before
// a multi-line finding is posted.
func (fd FileDiff) Hunk(position int) *Hunk {
	for i := range fd.Hunks {
		h := &fd.Hunks[i]
		for _, line := range h.Lines {
			if line.Position == position {
				return h
			}
		}
	}
	return nil
}

// parseHunkHeader parses a hunk header line like
// "@@ -10,7 +10,8 @@ optional trailing context".
func parseHunkHeader(line string) (Hunk, bool) {
	hunk := Hunk{HeaderText: line}

	parts := strings.SplitN(line, "@@", 3)
	if len(parts) < 2 {
		return hunk, false
	}

	rangeInfo := strings.TrimSpace(parts[1])
	rangeParts := strings.Fields(rangeInfo)

	for _, part := range rangeParts {
		switch {
		case strings.HasPrefix(part, "-"):
			hunk.OldStart, hunk.OldLines = parseRange(strings.TrimPrefix(part, "-"))
		case strings.HasPrefix(part, "+"):
			hunk.NewStart, hunk.NewLines = parseRange(strings.TrimPrefix(part, "+"))
		}
	}

	if len(parts) == 3 {
		hunk.EnclosingSymbol = strings.TrimSpace(parts[2])
	}

	return hunk, true
}

// parseRange parses "start,count" or bare "start" (count defaults to 1).
func parseRange(s string) (start, count int) {
	if idx := strings.Index(s, ","); idx >= 0 {
		start, _ = strconv.Atoi(s[:idx])
		count, _ = strconv.Atoi(s[idx+1:])
		return
	}
	start, _ = strconv.Atoi(s)
	count = 1
	return
}

func intPtr(n int) *int {
	return &n
}

// ParseUnifiedDiff parses the full multi-file diff text as returned by
// the forge's diff media type and returns just the per-file results,
// for callers that have no use for the ParsedDiff wrapper.
func ParseUnifiedDiff(text string) ([]FileDiff, error) {
	parsed, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return parsed.Files, nil
}
