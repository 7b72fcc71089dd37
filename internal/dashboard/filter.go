package dashboard

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"time"

	"OfficeSLAMonitor/internal/models"
)

type RangeOption struct {
	Key     string
	Label   string
	Seconds int64
}

var Ranges = []RangeOption{
	{Key: "24h", Label: "24 hours", Seconds: 86400},
	{Key: "7d", Label: "7 days", Seconds: 604800},
	{Key: "30d", Label: "30 days", Seconds: 2592000},
}

// ParseRange falls back to the first range for unknown keys.
func ParseRange(key string) RangeOption {
	for _, r := range Ranges {
		if r.Key == key {
			return r
		}
	}
	return Ranges[0]
}

// Window ends at now and reaches back over the range.
func (r RangeOption) Window(now time.Time) models.Window {
	end := now.Unix()
	return models.Window{TStart: end - r.Seconds, TEnd: end}
}

// OfficeOptions is the sorted, de-duplicated union of the known offices
// and the current selection.
func OfficeOptions(known []string, selected string) []string {
	set := make(map[string]struct{}, len(known)+1)
	for _, k := range known {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	if selected != "" {
		set[selected] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MergeKnown adds the offices of rows to known.
func MergeKnown(known []string, rows []models.SlaRow) []string {
	names := append([]string(nil), known...)
	for _, r := range rows {
		names = append(names, r.Office)
	}
	return OfficeOptions(names, "")
}

const (
	KnownOfficesCookie = "known_offices"
	maxKnownOffices    = 200

	// Browsers drop cookies over 4096 bytes including name and attributes.
	MaxKnownCookieBytes = 3800
)

// EncodeKnown packs office names into a cookie-safe value. Trailing names
// are dropped until the value fits in MaxKnownCookieBytes.
func EncodeKnown(names []string) string {
	if len(names) > maxKnownOffices {
		names = names[:maxKnownOffices]
	}
	for {
		raw, _ := json.Marshal(names)
		value := base64.RawURLEncoding.EncodeToString(raw)
		if len(value) <= MaxKnownCookieBytes || len(names) == 0 {
			return value
		}
		names = names[:len(names)-1]
	}
}

// DecodeKnown returns nil for anything it cannot read.
func DecodeKnown(value string) []string {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil
	}
	return OfficeOptions(names, "")
}
