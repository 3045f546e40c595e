package directory

import (
	"slices"
	"sort"
	"strings"
)

// Fee buckets accepted by TheaterFilter.Fee
const (
	FeeFree    = "free"
	FeeUnder25 = "under-25"
	FeeUnder50 = "under-50"
	Fee50Plus  = "50-plus"
)

// filterAll matches every value, the same as leaving a filter empty
const filterAll = "all"

// TheaterFilter narrows a theater listing. Empty fields and "all" match
// everything.
type TheaterFilter struct {
	Status string `form:"status" json:"status" validate:"omitempty,oneof=all open opening-soon closed"`
	Size   string `form:"size" json:"size" validate:"omitempty,oneof=all major mid-size small-fringe"`
	Genre  string `form:"genre" json:"genre"`
	Fee    string `form:"fee" json:"fee" validate:"omitempty,oneof=all free under-25 under-50 50-plus"`
	Query  string `form:"q" json:"q"`
}

// GrantFilter narrows a grant listing
type GrantFilter struct {
	Category string `form:"category" json:"category" validate:"omitempty,oneof=all federal state municipal regional private award fellowship emergency"`
	Type     string `form:"type" json:"type" validate:"omitempty,oneof=all project operating artist program multi-year residency emergency payroll"`
	Query    string `form:"q" json:"q"`
}

// Registry is the read-only listing set loaded at startup
type Registry struct {
	theaters []Theater
	byID     map[string]int
	grants   []Grant
}

// NewRegistry indexes the given listings. Theaters are ordered by name and
// grants by deadline.
func NewRegistry(theaters []Theater, grants []Grant) *Registry {
	ts := slices.Clone(theaters)
	sort.SliceStable(ts, func(i, j int) bool {
		return strings.ToLower(ts[i].Name) < strings.ToLower(ts[j].Name)
	})

	gs := slices.Clone(grants)
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Deadline != gs[j].Deadline {
			return gs[i].Deadline < gs[j].Deadline
		}
		return gs[i].ID < gs[j].ID
	})

	byID := make(map[string]int, len(ts))
	for i, t := range ts {
		byID[t.ID] = i
	}
	return &Registry{theaters: ts, byID: byID, grants: gs}
}

// Theaters lists theaters matching f
func (r *Registry) Theaters(f TheaterFilter) []Theater {
	out := make([]Theater, 0, len(r.theaters))
	for _, t := range r.theaters {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Theater looks up a theater by id
func (r *Registry) Theater(id string) (Theater, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Theater{}, false
	}
	return r.theaters[i], true
}

// Grants lists grants matching f
func (r *Registry) Grants(f GrantFilter) []Grant {
	out := make([]Grant, 0, len(r.grants))
	for _, g := range r.grants {
		if f.matches(g) {
			out = append(out, g)
		}
	}
	return out
}

// Counts reports the number of listings of each kind
func (r *Registry) Counts() (theaters, grants int) {
	return len(r.theaters), len(r.grants)
}

func (f TheaterFilter) matches(t Theater) bool {
	if !unfiltered(f.Status) && t.Status != f.Status {
		return false
	}
	if !unfiltered(f.Size) && t.Size != f.Size {
		return false
	}
	if !unfiltered(f.Genre) && !slices.ContainsFunc(t.Genres, func(g string) bool { return strings.EqualFold(g, f.Genre) }) {
		return false
	}
	if !unfiltered(f.Fee) && !feeMatches(f.Fee, t.Fee) {
		return false
	}
	return containsFold(f.Query, t.Name, t.Description)
}

func (f GrantFilter) matches(g Grant) bool {
	if !unfiltered(f.Category) && g.Category != f.Category {
		return false
	}
	if !unfiltered(f.Type) && g.Type != f.Type {
		return false
	}
	return containsFold(f.Query, g.Name, g.Organization, g.Description)
}

func feeMatches(bucket string, fee float64) bool {
	switch bucket {
	case FeeFree:
		return fee == 0
	case FeeUnder25:
		return fee > 0 && fee < 25
	case FeeUnder50:
		return fee >= 25 && fee < 50
	case Fee50Plus:
		return fee >= 50
	}
	return true
}

func unfiltered(v string) bool {
	return v == "" || v == filterAll
}

func containsFold(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
