// Package registry models the state commission orphan-well list: API number
// normalization, the prefilter applied before production lookups, and the
// conversion into pass-through well metadata.
package registry

import (
	"slices"
	"strings"

	"github.com/matthewbaird/reactivation/internal/types"
)

// Well is one row of the orphan-well registry.
type Well struct {
	API       string            `json:"api"`
	API10     string            `json:"api_10"`
	API14     string            `json:"api_14"`
	Name      string            `json:"well_name,omitempty"`
	WellType  string            `json:"well_type,omitempty"`
	Status    string            `json:"status,omitempty"`
	Operator  string            `json:"operator,omitempty"`
	County    string            `json:"county,omitempty"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// APINumber is a cleaned API well number in its two standard truncations.
type APINumber struct {
	Digits string
	API10  string
	API14  string
}

// NormalizeAPI strips every non-digit and derives the 10- and 14-digit forms
// by truncating and left-padding with zeros.
func NormalizeAPI(raw string) APINumber {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	return APINumber{
		Digits: digits,
		API10:  padTruncate(digits, 10),
		API14:  padTruncate(digits, 14),
	}
}

func padTruncate(digits string, n int) string {
	if len(digits) >= n {
		return digits[:n]
	}
	return strings.Repeat("0", n-len(digits)) + digits
}

// HasStatePrefix reports whether the API-10 carries the given state code.
func (a APINumber) HasStatePrefix(prefix string) bool {
	return strings.HasPrefix(a.API10, prefix)
}

// Normalize fills API10 and API14 from API.
func (w *Well) Normalize() {
	n := NormalizeAPI(w.API)
	w.API10, w.API14 = n.API10, n.API14
}

// WellInfo converts the registry row into pass-through metadata. The API-10
// becomes the well's API so reports are filed under it.
func (w Well) WellInfo() types.WellInfo {
	api := w.API10
	if api == "" {
		api = NormalizeAPI(w.API).API10
	}
	var extra map[string]string
	if len(w.Extra) > 0 {
		extra = make(map[string]string, len(w.Extra))
		for k, v := range w.Extra {
			extra[k] = v
		}
	}
	return types.WellInfo{
		API:       api,
		API14:     w.API14,
		Name:      w.Name,
		Status:    w.Status,
		WellType:  w.WellType,
		Operator:  w.Operator,
		County:    w.County,
		Latitude:  w.Latitude,
		Longitude: w.Longitude,
		Extra:     extra,
	}
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether both coordinates are present and inside the box.
func (b Bounds) Contains(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	return *lat >= b.MinLat && *lat <= b.MaxLat && *lon >= b.MinLon && *lon <= b.MaxLon
}

// PrefilterOptions configures the registry prefilter.
type PrefilterOptions struct {
	StatePrefix  string
	KeepTypes    []string
	KeepStatuses []string
	Bounds       Bounds
}

// DefaultPrefilterOptions returns the Oklahoma settings.
func DefaultPrefilterOptions() PrefilterOptions {
	return PrefilterOptions{
		StatePrefix:  "35",
		KeepTypes:    []string{"GAS", "OIL", "O&G", "OIL & GAS", "OIL AND GAS"},
		KeepStatuses: []string{"ORPHANED - SHUT IN", "ORPHANED - COMPLETED - NOT ACTIVE"},
		Bounds:       Bounds{MinLat: 33.5, MaxLat: 37.5, MinLon: -103.5, MaxLon: -94.0},
	}
}

// PrefilterSummary counts the wells remaining after each stage.
type PrefilterSummary struct {
	Total                 int `json:"total_occ"`
	AfterTypeScreen       int `json:"after_type_screen"`
	AfterStatusScreen     int `json:"after_status_screen"`
	AfterIdentityLocation int `json:"after_identity_location"`
}

// Prefilter narrows the registry to candidate production wells.
//
// Each screen applies to the whole list only when at least one well carries
// the screened attribute; a well lacking it is then dropped. Duplicate
// API-10s keep the last occurrence.
func Prefilter(wells []Well, opts PrefilterOptions) ([]Well, PrefilterSummary) {
	sum := PrefilterSummary{Total: len(wells)}

	out := make([]Well, 0, len(wells))
	for _, w := range wells {
		w.Normalize()
		out = append(out, w)
	}

	if slices.ContainsFunc(out, func(w Well) bool { return w.WellType != "" }) {
		out = keepUpper(out, opts.KeepTypes, func(w Well) string { return w.WellType })
	}
	sum.AfterTypeScreen = len(out)

	if slices.ContainsFunc(out, func(w Well) bool { return w.Status != "" }) {
		out = keepUpper(out, opts.KeepStatuses, func(w Well) string { return w.Status })
	}
	sum.AfterStatusScreen = len(out)

	out = dedupeLast(out)
	out = slices.DeleteFunc(out, func(w Well) bool {
		return len(NormalizeAPI(w.API).Digits) == 0 || !strings.HasPrefix(w.API10, opts.StatePrefix)
	})
	if slices.ContainsFunc(out, func(w Well) bool { return w.Latitude != nil || w.Longitude != nil }) {
		out = slices.DeleteFunc(out, func(w Well) bool { return !opts.Bounds.Contains(w.Latitude, w.Longitude) })
	}
	sum.AfterIdentityLocation = len(out)

	return out, sum
}

func keepUpper(wells []Well, keep []string, field func(Well) string) []Well {
	return slices.DeleteFunc(wells, func(w Well) bool {
		return !slices.Contains(keep, strings.ToUpper(strings.TrimSpace(field(w))))
	})
}

// dedupeLast keeps the last well for each API-10 at the position of that
// last occurrence.
func dedupeLast(wells []Well) []Well {
	last := make(map[string]int, len(wells))
	for i, w := range wells {
		last[w.API10] = i
	}
	out := wells[:0]
	for i, w := range wells {
		if last[w.API10] == i {
			out = append(out, w)
		}
	}
	return out
}
