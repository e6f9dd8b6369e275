// Package diff parses unified diff format and maps file line numbers to
// GitHub's "diff position" coordinate system, which inline PR review
// comments are addressed by instead of plain line numbers.
//
// Position is 1-indexed per file, counting from the file's first hunk
// header line (the "@@ ... @@" line itself is position 1), and counts
// every line in the file's hunks: context, additions, and deletions
// alike. Position resets to zero at each "diff --git" file boundary, so
// the same absolute position value means different things in different
// files of a multi-file diff.
package diff
