package core

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	BinarySampleSize   = 8192 // Bytes to sample for text/binary detection
	BinaryThresholdPct = 10   // Max % non-printable chars for text files
)

// DetectFileType reports whether data looks like text the editor can show.
//
// Detection heuristic (in order):
//  1. Null bytes present → binary
//  2. Invalid UTF-8 → binary
//  3. >10% non-printable control chars → binary
func DetectFileType(data []byte) bool {
	if len(data) == 0 {
		return true
	}

	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sample := data[:min(len(data), BinarySampleSize)]

	// A multi-byte rune cut at the sample boundary is not a UTF-8 error
	if !utf8.Valid(sample) && !utf8.Valid(trimPartialRune(sample)) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		// Allow tab, newline, carriage return
		if b < 32 && b != 9 && b != 10 && b != 13 {
			nonPrintable++
		}
		if b == 127 {
			nonPrintable++
		}
	}

	threshold := len(sample) * BinaryThresholdPct / 100
	return nonPrintable <= threshold
}

func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// CompareFiles checks if two contents are identical by SHA-256
func CompareFiles(a, b []byte) bool {
	ha := sha256.Sum256(a)
	hb := sha256.Sum256(b)
	return bytes.Equal(ha[:], hb[:])
}

// GenerateUnifiedDiff returns a unified diff from oldData to newData,
// or "" when they are identical.
func GenerateUnifiedDiff(oldName, newName string, oldData, newData []byte) (string, error) {
	if CompareFiles(oldData, newData) {
		return "", nil
	}

	if !DetectFileType(oldData) || !DetectFileType(newData) {
		return fmt.Sprintf("Binary files %s and %s differ\n", oldName, newName), nil
	}

	dmp := diffmatchpatch.New()

	oldStr, newStr := string(oldData), string(newData)
	diffs := lineDiff(dmp, oldStr, newStr)

	patches := dmp.PatchMake(oldStr, diffs)
	if len(patches) == 0 {
		return "", nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- %s\n", oldName)
	fmt.Fprintf(&result, "+++ %s\n", newName)
	result.WriteString(dmp.PatchToText(patches))

	return result.String(), nil
}

// MergeText combines two versions of a text with git-style conflict markers
// around the lines that differ. Common lines appear once.
func MergeText(ours, theirs []byte, oursLabel, theirsLabel string) []byte {
	dmp := diffmatchpatch.New()
	diffs := lineDiff(dmp, string(ours), string(theirs))
	return buildConflictFromDiffs(diffs, oursLabel, theirsLabel)
}

// HasConflictMarkers checks if content still contains unresolved markers
func HasConflictMarkers(data []byte) bool {
	return bytes.Contains(data, []byte("<<<<<<<")) ||
		bytes.Contains(data, []byte("=======")) ||
		bytes.Contains(data, []byte(">>>>>>>"))
}

func lineDiff(dmp *diffmatchpatch.DiffMatchPatch, a, b string) []diffmatchpatch.Diff {
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	return dmp.DiffCharsToLines(diffs, lineArray)
}

// buildConflictFromDiffs turns delete/insert runs into conflict hunks
func buildConflictFromDiffs(diffs []diffmatchpatch.Diff, oursLabel, theirsLabel string) []byte {
	var buf bytes.Buffer

	writeSide := func(i int, typ diffmatchpatch.Operation) int {
		for i < len(diffs) && diffs[i].Type == typ {
			text := diffs[i].Text
			buf.WriteString(text)
			if len(text) > 0 && text[len(text)-1] != '\n' {
				buf.WriteByte('\n')
			}
			i++
		}
		return i
	}

	i := 0
	for i < len(diffs) {
		if diffs[i].Type == diffmatchpatch.DiffEqual {
			buf.WriteString(diffs[i].Text)
			i++
			continue
		}

		buf.WriteString("<<<<<<< " + oursLabel + "\n")
		i = writeSide(i, diffmatchpatch.DiffDelete)
		buf.WriteString("=======\n")
		i = writeSide(i, diffmatchpatch.DiffInsert)
		buf.WriteString(">>>>>>> " + theirsLabel + "\n")
	}

	return buf.Bytes()
}
