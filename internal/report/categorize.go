package report

// PartitionByCategory groups findings into the fixed §5 category order,
// preserving each category's insertion order. Categories with no findings
// still appear as empty slices so the deep-scan shape is stable across runs.
func PartitionByCategory(findings []Finding) map[Category][]Finding {
	out := make(map[Category][]Finding, len(CategoryOrder))
	for _, c := range CategoryOrder {
		out[c] = []Finding{}
	}
	for _, f := range findings {
		out[f.Category] = append(out[f.Category], f)
	}
	return out
}

// OrderedCategories returns (category, findings) pairs in the fixed
// presentation order, skipping categories outside CategoryOrder.
type CategoryFindings struct {
	Category Category  `json:"category"`
	Findings []Finding `json:"findings"`
}

// OrderedCategoryFindings flattens PartitionByCategory into the presentation
// order used by DeepScanResult.
func OrderedCategoryFindings(findings []Finding) []CategoryFindings {
	partitioned := PartitionByCategory(findings)
	out := make([]CategoryFindings, 0, len(CategoryOrder))
	for _, c := range CategoryOrder {
		out = append(out, CategoryFindings{Category: c, Findings: partitioned[c]})
	}
	return out
}

// idCounters tracks the next free counter per prefix so that repeated calls
// within one run assign stable, monotonically increasing ids.
type IDAllocator struct {
	counters map[IDPrefix]int
}

// NewIDAllocator returns an allocator starting every prefix at 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{counters: make(map[IDPrefix]int)}
}

// Next returns the next id for prefix and advances its counter.
func (a *IDAllocator) Next(prefix IDPrefix) string {
	a.counters[prefix]++
	return FormatID(prefix, a.counters[prefix])
}

// SeverityToPrefix maps a LocalFinding's informal type to the formal id
// family used when it is promoted to a Finding during Phase C. Unrecognized
// types default to DEBT, matching the source's catch-all "technical debt"
// bucket for findings that don't cleanly fit another family.
func SeverityToPrefix(category Category, findingType string) IDPrefix {
	switch category {
	case CategorySecurity:
		return PrefixSec
	case CategoryTesting:
		return PrefixDX
	}
	switch findingType {
	case "PERFORMANCE":
		return PrefixPerf
	case "UX":
		return PrefixUX
	case "DOCUMENTATION":
		return PrefixDoc
	case "DEPENDENCY":
		return PrefixDeps
	case "BUG":
		return PrefixBug
	default:
		return PrefixDebt
	}
}
