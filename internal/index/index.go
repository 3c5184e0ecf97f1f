// Package index builds the candidate lookup structures for one provider
// shard: exact buckets keyed by normalized code, and coarser fuzzy blocks
// keyed by a code prefix, so matching examines a small candidate set instead
// of the whole commission population.
package index

import "commission-reconciler/internal/domain"

// blockPrefixLen is the fuzzy block key width. Codes shorter than this form
// their own block.
const blockPrefixLen = 4

// Index holds the exact table and fuzzy blocks over one provider's
// deduplicated commission lines. Construction is O(n); every line appears in
// its own exact bucket and its own block.
type Index struct {
	exact  map[string][]*domain.CommissionLine
	blocks map[string][]*domain.CommissionLine
	lines  []*domain.CommissionLine
}

// Build indexes a provider's deduplicated lines. The slice is not copied;
// callers must not mutate it afterwards.
func Build(lines []domain.CommissionLine) *Index {
	ix := &Index{
		exact:  make(map[string][]*domain.CommissionLine, len(lines)),
		blocks: make(map[string][]*domain.CommissionLine, len(lines)),
		lines:  make([]*domain.CommissionLine, 0, len(lines)),
	}
	for i := range lines {
		line := &lines[i]
		ix.lines = append(ix.lines, line)
		ix.exact[line.Code] = append(ix.exact[line.Code], line)
		key := BlockKey(line.Code)
		ix.blocks[key] = append(ix.blocks[key], line)
	}
	return ix
}

// BlockKey returns the fuzzy block key for a normalized code.
func BlockKey(code string) string {
	runes := []rune(code)
	if len(runes) <= blockPrefixLen {
		return code
	}
	return string(runes[:blockPrefixLen])
}

// LookupExact returns the lines whose normalized code equals code. The list
// may hold several lines: conflicting duplicates stay individually matchable
// after dedup.
func (ix *Index) LookupExact(code string) []*domain.CommissionLine {
	return ix.exact[code]
}

// LookupBlock returns the fuzzy block candidates for code. The block may
// overlap the exact bucket; the caller deduplicates.
func (ix *Index) LookupBlock(code string) []*domain.CommissionLine {
	return ix.blocks[BlockKey(code)]
}

// Lines returns every indexed line, for the unmatched-commission sweep.
func (ix *Index) Lines() []*domain.CommissionLine {
	return ix.lines
}

// Len returns the number of indexed lines.
func (ix *Index) Len() int {
	return len(ix.lines)
}
