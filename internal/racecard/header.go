package racecard

// headerScanRows bounds the search for the header row; the real grid always
// opens within the first few rows, anything later is data.
const headerScanRows = 8

// headerResolution carries the outcome of header mapping for one grid.
type headerResolution struct {
	index  map[Field]int
	rowIdx int
}

// usesPositionalFallback reports that no header cell produced a mapping and
// extraction must fall back to the fixed column template.
func (h headerResolution) usesPositionalFallback() bool {
	return len(h.index) == 0
}

// columnFor resolves the source column of a field for a row of the given
// width, or -1 when the field has no usable source.
func (h headerResolution) columnFor(f Field, width int) int {
	if h.usesPositionalFallback() {
		return positionalIndex(f, width)
	}
	col, ok := h.index[f]
	if !ok || col < 0 || col >= width {
		return -1
	}
	return col
}

// resolveHeader finds the grid's header row and maps its cells to canonical
// fields.
//
// Candidate scoring over the first headerScanRows rows: recognized keyword
// hits x10 plus the count of <th>-tagged cells; the first maximum in
// document order wins. If that row is a grouping band with no leaf column
// names, up to three following rows are scanned and the first leaf-bearing
// one is adopted instead. Cells then claim fields by alias match; the first
// cell to match a field keeps it.
func resolveHeader(rows []gridRow) headerResolution {
	res := headerResolution{index: map[Field]int{}, rowIdx: 0}
	if len(rows) == 0 {
		return res
	}

	bestScore := -1
	limit := min(headerScanRows, len(rows))
	for i := 0; i < limit; i++ {
		thCount := rows[i].sel.Find("th").Length()
		hits := countKeywordHits(cellText(rows[i].sel), headerKeywords)
		if score := hits*10 + thCount; score > bestScore {
			bestScore = score
			res.rowIdx = i
		}
	}

	if !hasLeafCell(rows[res.rowIdx]) {
		for j := res.rowIdx + 1; j < min(res.rowIdx+4, len(rows)); j++ {
			if hasLeafCell(rows[j]) {
				res.rowIdx = j
				break
			}
		}
	}

	header := rows[res.rowIdx]
	for col, text := range header.texts {
		for _, f := range fieldOrder {
			if _, taken := res.index[f]; taken {
				continue
			}
			if fieldMatches(text, f) {
				res.index[f] = col
			}
		}
	}
	return res
}

func hasLeafCell(r gridRow) bool {
	for _, t := range r.texts {
		if containsAny(t, leafKeywords) {
			return true
		}
	}
	return false
}
