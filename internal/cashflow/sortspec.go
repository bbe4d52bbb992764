package cashflow

import (
	"sort"
	"strings"
)

// SortKey names a display-sortable ledger column.
type SortKey string

const (
	SortByDate        SortKey = "date"
	SortByAmount      SortKey = "amount"
	SortByDescription SortKey = "description"
	SortByBalance     SortKey = "balance"
)

// SortDirection is the tri-state display direction.
type SortDirection int

const (
	SortNone SortDirection = iota
	SortAsc
	SortDesc
)

// Cycle advances the direction: none → asc → desc → none.
func (d SortDirection) Cycle() SortDirection {
	switch d {
	case SortNone:
		return SortAsc
	case SortAsc:
		return SortDesc
	default:
		return SortNone
	}
}

// SortSpec pairs a column with a direction.
type SortSpec struct {
	Key       SortKey
	Direction SortDirection
}

// ApplySort orders entries for display only. Specs with SortNone are ignored;
// balances are carried along untouched, never recomputed here.
func ApplySort(entries []LedgerEntry, specs []SortSpec) []LedgerEntry {
	active := make([]SortSpec, 0, len(specs))
	for _, s := range specs {
		if s.Direction != SortNone {
			active = append(active, s)
		}
	}
	out := make([]LedgerEntry, len(entries))
	copy(out, entries)
	if len(active) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, s := range active {
			cmp := compareEntries(out[i], out[j], s.Key)
			if cmp == 0 {
				continue
			}
			if s.Direction == SortDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return out
}

func compareEntries(a, b LedgerEntry, key SortKey) int {
	switch key {
	case SortByAmount:
		return compareFloats(a.Amount, b.Amount)
	case SortByDescription:
		return strings.Compare(a.Description, b.Description)
	case SortByBalance:
		return compareFloats(a.RunningBalance, b.RunningBalance)
	default:
		if a.EffectiveDate.Before(b.EffectiveDate) {
			return -1
		}
		if a.EffectiveDate.After(b.EffectiveDate) {
			return 1
		}
		return 0
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ParseSortSpecs parses a "key:direction,key:direction" query parameter.
// Unknown keys and directions are dropped rather than erroring.
func ParseSortSpecs(raw string) []SortSpec {
	if raw == "" {
		return nil
	}
	var specs []SortSpec
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		key := SortKey(kv[0])
		switch key {
		case SortByDate, SortByAmount, SortByDescription, SortByBalance:
		default:
			continue
		}
		dir := SortAsc
		if len(kv) == 2 {
			switch kv[1] {
			case "asc":
				dir = SortAsc
			case "desc":
				dir = SortDesc
			case "none":
				dir = SortNone
			default:
				continue
			}
		}
		specs = append(specs, SortSpec{Key: key, Direction: dir})
	}
	return specs
}
