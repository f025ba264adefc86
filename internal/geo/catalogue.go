package geo

import "strings"

type State struct {
	Name  string   `json:"name"`
	Zones []string `json:"zones"`
}

// Catalogue is the list of states and zones offered to reporters.
var Catalogue = []State{
	{Name: "Delhi", Zones: []string{"South Delhi", "North Delhi", "East Delhi", "West Delhi", "Central Delhi", "NDMC Area", "Delhi NCR"}},
	{Name: "Maharashtra", Zones: []string{"South Mumbai", "West Mumbai", "Mumbai Metropolitan", "West Pune", "Central Pune", "North Nashik", "Central Nagpur"}},
	{Name: "Karnataka", Zones: []string{"Central Bangalore", "East Bangalore", "Bangalore Urban"}},
	{Name: "Tamil Nadu", Zones: []string{"North Chennai", "Chennai Metropolitan"}},
	{Name: "West Bengal", Zones: []string{"South Kolkata", "Kolkata Metropolitan"}},
	{Name: "Telangana", Zones: []string{"West Hyderabad", "Hyderabad Metropolitan"}},
	{Name: "Madhya Pradesh", Zones: []string{"North Indore", "South Indore", "East Indore", "West Indore", "Central Indore", "Indore District", "Indore Circle", "Indore BRTS Corridor", "Indore Tourism Circuit", "Central Bhopal"}},
	{Name: "Gujarat", Zones: []string{"North Surat", "South Surat", "East Surat", "West Surat", "Central Surat", "Surat Municipal", "Surat Division", "Surat Industrial", "Surat Municipal Schools", "Surat Urban", "Surat District", "West Ahmedabad", "Ahmedabad District"}},
	{Name: "Rajasthan", Zones: []string{"Central Jaipur"}},
	{Name: "Uttar Pradesh", Zones: []string{"Central Lucknow"}},
	{Name: "Chandigarh", Zones: []string{"Chandigarh UT"}},
}

func StateNames() []string {
	out := make([]string, 0, len(Catalogue))
	for _, s := range Catalogue {
		out = append(out, s.Name)
	}
	return out
}

// ZonesFor looks a state up case-insensitively.
func ZonesFor(state string) ([]string, bool) {
	for _, s := range Catalogue {
		if strings.EqualFold(s.Name, strings.TrimSpace(state)) {
			return s.Zones, true
		}
	}
	return nil, false
}

// KnownZone reports whether zone belongs to state in the catalogue.
func KnownZone(state, zone string) bool {
	zones, ok := ZonesFor(state)
	if !ok {
		return false
	}
	for _, z := range zones {
		if Normalize(z) == Normalize(zone) {
			return true
		}
	}
	return false
}
