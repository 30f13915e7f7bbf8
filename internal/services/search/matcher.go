package search

import "strings"

// Ratio computes a similarity score in [0, 1] between two strings: the
// matched-character count over both lengths (2M / (len(a)+len(b))),
// where matches come from recursively taking the longest common
// substring. This is the classic sequence-matcher ratio, so thresholds
// tuned against it (0.9 by default) keep their meaning.
func Ratio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	matched := matchingSize(ra, rb)
	return 2 * float64(matched) / float64(total)
}

// matchingSize sums matching block lengths: find the longest common
// block, then recurse on the pieces to its left and right
func matchingSize(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingSize(a[:ai], b[:bi]) +
		matchingSize(a[ai+size:], b[bi+size:])
}

// longestMatch finds the longest common contiguous block between a and
// b, preferring the earliest occurrence in a
func longestMatch(a, b []rune) (bestA, bestB, bestSize int) {
	// lengths[j] holds the length of the common suffix ending at
	// a[i], b[j] for the current row i
	lengths := make(map[int]int)
	for i := range a {
		next := make(map[int]int)
		for j := range b {
			if a[i] != b[j] {
				continue
			}
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestA = i - k + 1
				bestB = j - k + 1
				bestSize = k
			}
		}
		lengths = next
	}
	return bestA, bestB, bestSize
}

// Normalize folds a title for comparison: lowercase, collapsed spaces
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// prefilterToken picks the longest word of the normalized query to use
// as a cheap substring prefilter; empty when no word is long enough to
// narrow anything down
func prefilterToken(name string) string {
	longest := ""
	for _, word := range strings.Fields(Normalize(name)) {
		if len(word) > len(longest) {
			longest = word
		}
	}
	if len(longest) < 3 {
		return ""
	}
	return longest
}
