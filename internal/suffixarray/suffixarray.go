// Package suffixarray builds a suffix array, its inverse permutation, and a
// Kasai LCP array over an arbitrary byte string. The BPS delta builder
// (spec §4.7) uses this to locate the longest run of source∥target bytes
// matching the unconsumed prefix of the target in better than quadratic
// time.
//
// No repo in the retrieval pack builds a suffix array (the nearest
// domain-adjacent file, go-bsdiff's bspatch.go, only applies an
// already-built suffix-sort patch) — this is the one component in the tree
// grounded on the textbook algorithm rather than a pack file; see
// DESIGN.md.
package suffixarray

import "golang.org/x/exp/slices"

// Index is a suffix array over Data together with its inverse permutation
// (Rank) and Kasai LCP array.
type Index struct {
	Data []byte
	// SA[i] is the starting offset of the i-th lexicographically smallest
	// suffix of Data.
	SA []int32
	// Rank[p] is the index into SA of the suffix starting at p — the
	// inverse permutation of SA.
	Rank []int32
	// LCP[i] is the length of the common prefix between the suffixes at
	// SA[i-1] and SA[i]; LCP[0] is always 0.
	LCP []int32
}

// Build constructs a suffix array over data using prefix doubling
// (O(n log^2 n)): each round refines a rank array by sorting suffixes on
// the pair (rank[i], rank[i+k]), doubling k every round until ranks are
// unique. The LCP array is then derived in O(n) via Kasai's algorithm.
func Build(data []byte) *Index {
	n := len(data)
	sa := make([]int32, n)
	rank := make([]int32, n)
	tmp := make([]int32, n)

	for i := 0; i < n; i++ {
		sa[i] = int32(i)
		rank[i] = int32(data[i])
	}

	rankAt := func(i int32, k int) int32 {
		if int(i)+k < n {
			return rank[int(i)+k]
		}
		return -1
	}

	for k := 1; n > 0; k *= 2 {
		slices.SortFunc(sa, func(a, b int32) int {
			if rank[a] != rank[b] {
				return int(rank[a]) - int(rank[b])
			}
			return int(rankAt(a, k)) - int(rankAt(b, k))
		})

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			tmp[sa[i]] = tmp[sa[i-1]]
			prevEq := rank[sa[i-1]] == rank[sa[i]] && rankAt(sa[i-1], k) == rankAt(sa[i], k)
			if !prevEq {
				tmp[sa[i]]++
			}
		}
		copy(rank, tmp)

		if int(rank[sa[n-1]]) == n-1 {
			break
		}
		if k > n {
			break
		}
	}

	return &Index{
		Data: data,
		SA:   sa,
		Rank: rank,
		LCP:  kasai(data, sa, rank),
	}
}

func kasai(data []byte, sa, rank []int32) []int32 {
	n := len(data)
	lcp := make([]int32, n)
	if n == 0 {
		return lcp
	}
	var h int32
	for i := 0; i < n; i++ {
		if rank[i] > 0 {
			j := int(sa[rank[i]-1])
			for int(i)+int(h) < n && j+int(h) < n && data[int(i)+int(h)] == data[j+int(h)] {
				h++
			}
			lcp[rank[i]] = h
			if h > 0 {
				h--
			}
		} else {
			h = 0
		}
	}
	return lcp
}

// LongestMatch scans outward from the suffix starting at pos (in both
// directions of the suffix array, bounded by the running minimum LCP) and
// returns the longest match whose start position satisfies accept. Among
// equal-length matches it prefers the one minimizing dist(start), used by
// the BPS delta builder to tie-break toward the shorter signed-offset
// encoding (spec §4.7).
func (idx *Index) LongestMatch(pos int, accept func(start int) bool, dist func(start int) int) (length, start int, found bool) {
	r := int(idx.Rank[pos])
	n := len(idx.SA)

	best := -1
	bestLen := 0
	bestDist := 0

	consider := func(cand int, lcp int) {
		if cand == pos || !accept(cand) {
			return
		}
		d := dist(cand)
		if lcp > bestLen || (lcp == bestLen && (best == -1 || d < bestDist)) {
			bestLen = lcp
			best = cand
			bestDist = d
		}
	}

	// Scan left.
	minLCP := int(^uint(0) >> 1)
	for i := r - 1; i >= 0; i-- {
		if l := int(idx.LCP[i+1]); l < minLCP {
			minLCP = l
		}
		if minLCP == 0 || minLCP < bestLen {
			break
		}
		consider(int(idx.SA[i]), minLCP)
	}

	// Scan right.
	minLCP = int(^uint(0) >> 1)
	for i := r + 1; i < n; i++ {
		if l := int(idx.LCP[i]); l < minLCP {
			minLCP = l
		}
		if minLCP == 0 || minLCP < bestLen {
			break
		}
		consider(int(idx.SA[i]), minLCP)
	}

	if best == -1 {
		return 0, 0, false
	}
	return bestLen, best, true
}
