package shipping

import (
	"path"
	"strings"
)

// Matches reports whether the zone's pattern covers the address.
// The default zone matches nothing here; it is selected explicitly by
// ResolveZone when every other zone has been tried.
func (z *Zone) Matches(addr Address) bool {
	if z.Code == DefaultZoneCode {
		return false
	}
	pattern := strings.TrimSpace(z.Pattern)
	if pattern == "" {
		return false
	}
	for _, group := range strings.Split(pattern, "&") {
		if !matchGroup(group, addr) {
			return false
		}
	}
	return true
}

// matchGroup is satisfied when any alternative matches the address.
func matchGroup(group string, addr Address) bool {
	for _, alt := range strings.Split(group, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		if matchAlternative(alt, addr) {
			return true
		}
	}
	return false
}

// matchAlternative matches two-letter uppercase tokens against the
// country code and everything else against the zip as a glob.
func matchAlternative(alt string, addr Address) bool {
	if len(alt) == 2 && alt == strings.ToUpper(alt) && !strings.ContainsAny(alt, "0123456789*") {
		return strings.EqualFold(alt, addr.Country)
	}
	matched, err := path.Match(alt, addr.Zip)
	if err != nil {
		return false
	}
	return matched
}

// ResolveZone selects the zone covering the address. Zones are tried
// in order; the default zone wins only when nothing else matches.
// Returns nil when no zone applies at all.
func ResolveZone(zones []Zone, addr Address) *Zone {
	var fallback *Zone
	for i := range zones {
		if zones[i].Code == DefaultZoneCode {
			if fallback == nil {
				fallback = &zones[i]
			}
			continue
		}
		if zones[i].Matches(addr) {
			return &zones[i]
		}
	}
	return fallback
}
