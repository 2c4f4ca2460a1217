// Package production turns raw provider records into a canonical, date-sorted
// monthly gas series per well.
package production

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one raw well-month as delivered by a data source. Keys vary by
// provider; values are primitives (string, number, bool) or time.Time.
type Record map[string]any

var (
	// ErrNoDataAvailable is returned when a well has no records at all.
	ErrNoDataAvailable = errors.New("no production data available")
	// ErrNoPositiveProduction is returned when records exist but none carry a
	// resolvable date and positive gas volume.
	ErrNoPositiveProduction = errors.New("no positive production months found")
)

// FieldSet lists, per logical quantity, the candidate keys in priority order.
type FieldSet struct {
	WellID   []string
	Date     []string
	Year     []string
	Month    []string
	Gas      []string
	Oil      []string
	Water    []string
	Operator []string
}

// DefaultFieldSet returns the candidate keys used by the commercial provider
// export and the manual CSV layout.
func DefaultFieldSet() FieldSet {
	return FieldSet{
		WellID:   []string{"wellId", "well_id", "api10", "api"},
		Date:     []string{"reportDate", "date", "production_date"},
		Year:     []string{"reportYear"},
		Month:    []string{"reportMonth"},
		Gas:      []string{"wellGas", "totalGas", "gas_mcf"},
		Oil:      []string{"wellOil", "totalOil", "oil_bbl"},
		Water:    []string{"wellWater"},
		Operator: []string{"operator"},
	}
}

// Point is one dated row of a series.
type Point struct {
	Date     time.Time `json:"date"`
	GasMCF   float64   `json:"gas_mcf"`
	OilBBL   float64   `json:"oil_bbl,omitempty"`
	WaterBBL float64   `json:"water_bbl,omitempty"`
	Operator string    `json:"operator,omitempty"`
}

// Series is the normalized history of one well. Points holds every row with a
// resolvable date, zero-volume rows included, sorted ascending by date.
type Series struct {
	WellID string
	Points []Point
}

// Producing returns the rows with positive gas volume, in date order.
func (s Series) Producing() []Point {
	out := make([]Point, 0, len(s.Points))
	for _, p := range s.Points {
		if p.GasMCF > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of dated rows.
func (s Series) Len() int { return len(s.Points) }

// Normalizer resolves heterogeneous records using a FieldSet.
type Normalizer struct {
	fields FieldSet
}

// NewNormalizer creates a Normalizer for the given candidate keys.
func NewNormalizer(fields FieldSet) *Normalizer {
	return &Normalizer{fields: fields}
}

// Normalize builds the series for a single well. It returns
// ErrNoDataAvailable for an empty input and ErrNoPositiveProduction when no
// dated row carries positive gas; the partially built series is still
// returned in the latter case.
func (n *Normalizer) Normalize(records []Record) (Series, error) {
	if len(records) == 0 {
		return Series{}, ErrNoDataAvailable
	}

	gasKey := firstPresent(records, n.fields.Gas)
	oilKey := firstPresent(records, n.fields.Oil)
	waterKey := firstPresent(records, n.fields.Water)
	dateKey := firstPresent(records, n.fields.Date)
	yearKey := firstPresent(records, n.fields.Year)
	monthKey := firstPresent(records, n.fields.Month)
	opKey := firstPresent(records, n.fields.Operator)

	series := Series{WellID: n.WellID(records[0])}
	producing := 0
	for _, r := range records {
		var (
			date time.Time
			ok   bool
		)
		switch {
		case dateKey != "":
			date, ok = parseDate(r[dateKey])
		case yearKey != "" && monthKey != "":
			date, ok = yearMonth(r[yearKey], r[monthKey])
		}
		if !ok {
			continue
		}
		p := Point{
			Date:     date,
			GasMCF:   toFloat(lookup(r, gasKey)),
			OilBBL:   toFloat(lookup(r, oilKey)),
			WaterBBL: toFloat(lookup(r, waterKey)),
		}
		if opKey != "" {
			if s, isStr := r[opKey].(string); isStr {
				p.Operator = strings.TrimSpace(s)
			}
		}
		if p.GasMCF > 0 {
			producing++
		}
		series.Points = append(series.Points, p)
	}

	sort.SliceStable(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})

	if producing == 0 {
		return series, ErrNoPositiveProduction
	}
	return series, nil
}

// WellID resolves the well identifier of a record, or "" when none of the
// candidate keys carry a value.
func (n *Normalizer) WellID(r Record) string {
	for _, k := range n.fields.WellID {
		if v, ok := r[k]; ok {
			if s := toString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// WellIDs returns every distinct identifier a record carries, in candidate
// order. A provider export can hold its own well ID next to the API number.
func (n *Normalizer) WellIDs(r Record) []string {
	var ids []string
	for _, k := range n.fields.WellID {
		v, ok := r[k]
		if !ok {
			continue
		}
		if s := toString(v); s != "" && !slices.Contains(ids, s) {
			ids = append(ids, s)
		}
	}
	return ids
}

// GroupByWell partitions a mixed-well record set by resolved well ID,
// preserving first-seen order. Records without an identifier are grouped
// under "".
func (n *Normalizer) GroupByWell(records []Record) (ids []string, groups map[string][]Record) {
	groups = make(map[string][]Record)
	for _, r := range records {
		id := n.WellID(r)
		if _, seen := groups[id]; !seen {
			ids = append(ids, id)
		}
		groups[id] = append(groups[id], r)
	}
	return ids, groups
}

// firstPresent returns the first candidate key carried by any record. Keys are
// resolved like table columns: once a candidate exists, it is used for every
// record.
func firstPresent(records []Record, candidates []string) string {
	for _, k := range candidates {
		for _, r := range records {
			if _, ok := r[k]; ok {
				return k
			}
		}
	}
	return ""
}

func lookup(r Record, key string) any {
	if key == "" {
		return nil
	}
	return r[key]
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"01/02/2006",
	"1/2/2006",
}

func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return time.Time{}, false
		}
		return d.UTC(), true
	case *time.Time:
		if d == nil || d.IsZero() {
			return time.Time{}, false
		}
		return d.UTC(), true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func yearMonth(y, m any) (time.Time, bool) {
	year := toFloat(y)
	month := toFloat(m)
	if year < 1 || month < 1 || month > 12 || year != math.Trunc(year) || month != math.Trunc(month) {
		return time.Time{}, false
	}
	return time.Date(int(year), time.Month(int(month)), 1, 0, 0, 0, 0, time.UTC), true
}

// toFloat coerces a primitive to float64. Anything missing, unparseable or
// non-finite becomes 0.
func toFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}
