package source

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matthewbaird/reactivation/internal/registry"
)

// registryColumns lists the accepted header names per registry field,
// compared case-insensitively.
var registryColumns = map[string][]string{
	"api":       {"api", "api_number", "apinumber", "api10", "api_10"},
	"name":      {"well_name", "wellname", "name"},
	"type":      {"welltype", "well_type"},
	"status":    {"wellstatusdesc", "well_status_desc", "status_desc"},
	"operator":  {"operator", "operator_name"},
	"county":    {"county", "countyname"},
	"latitude":  {"latitude", "lat"},
	"longitude": {"longitude", "lon", "lng"},
}

// LoadRegistryFile reads registry wells from a CSV file.
func LoadRegistryFile(path string) ([]registry.Well, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ParseRegistryCSV(f)
}

// ParseRegistryCSV reads registry wells. Columns that match no known field
// are kept in Well.Extra.
func ParseRegistryCSV(r io.Reader) ([]registry.Well, error) {
	rows, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	field := make([]string, len(header))
	for i, h := range header {
		field[i] = resolveColumn(h)
	}

	wells := make([]registry.Well, 0, len(rows))
	for _, row := range rows {
		var w registry.Well
		for i, val := range row {
			if i >= len(header) {
				break
			}
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			switch field[i] {
			case "api":
				if w.API == "" {
					w.API = val
				}
			case "name":
				w.Name = val
			case "type":
				w.WellType = val
			case "status":
				w.Status = val
			case "operator":
				w.Operator = val
			case "county":
				w.County = val
			case "latitude":
				w.Latitude = parseCoord(val)
			case "longitude":
				w.Longitude = parseCoord(val)
			default:
				if w.Extra == nil {
					w.Extra = make(map[string]string)
				}
				w.Extra[header[i]] = val
			}
		}
		w.Normalize()
		wells = append(wells, w)
	}
	return wells, nil
}

func resolveColumn(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	for field, names := range registryColumns {
		for _, n := range names {
			if h == n {
				return field
			}
		}
	}
	return ""
}

func parseCoord(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
