package models

import "strings"

// countyNames maps Dove county abbreviations to display names.
var countyNames = map[string]string{
	"AB":         "Alberta",
	"AL":         "Alabama",
	"AR":         "Arkansas",
	"ArgyllBute": "Argyll & Bute",
	"BC":         "British Columbia",
	"Beds":       "Bedfordshire",
	"Berks":      "Berkshire",
	"Bl Gwent":   "Blaenau Gwent",
	"Bucks":      "Buckinghamshire",
	"C Aberdeen": "Aberdeen",
	"C Bris":     "City of Bristol",
	"C Dundee":   "City of Dundee",
	"C Edin":     "City of Edinburgh",
	"C Glas":     "City of Glasgow",
	"C London":   "City of London",
	"CT":         "Connecticut",
	"Cambs":      "Cambridgeshire",
	"Carms":      "Carmarthenshire",
	"Clackman":   "Clackmannanshire",
	"DC":         "District of Columbia",
	"DE":         "Delaware",
	"Denbighs":   "Denbighshire",
	"Derbys":     "Derbyshire",
	"DumfGallwy": "Dumfries & Galloway",
	"E Loth":     "East Lothian",
	"E Sussex":   "East Sussex",
	"EC":         "Eastern Cape",
	"ER Yorks":   "East Riding of Yorkshire",
	"FL":         "Florida",
	"Ferman":     "Fermanagh",
	"Flints":     "Flintshire",
	"GA":         "Georgia",
	"Gaut":       "Gauteng",
	"Glos":       "Gloucestershire",
	"Gr London":  "Greater London",
	"Gr Man":     "Greater Manchester",
	"HI":         "Hawaii",
	"Hants":      "Hampshire",
	"Herefs":     "Herefordshire",
	"Herts":      "Hertfordshire",
	"IL":         "Illinois",
	"IoW":        "Isle of Wight",
	"KZN":        "KwaZulu-Natal",
	"Kilk":       "Kilkenny",
	"LA":         "Louisiana",
	"Lancs":      "Lancashire",
	"Leics":      "Leicestershire",
	"Lim":        "Limerick",
	"Lincs":      "Lincolnshire",
	"MA":         "Massachusetts",
	"MD":         "Maryland",
	"MI":         "Michigan",
	"Mers":       "Merseyside",
	"Merthyr":    "Merthyr Tydfil",
	"Monmths":    "Monmouthshire",
	"N Yorks":    "North Yorkshire",
	"NC":         "North Carolina",
	"NI":         "North Island",
	"NJ":         "New Jersey",
	"NSW":        "New South Wales",
	"NY":         "New York",
	"Neath PT":   "Neath Port Talbot",
	"North West": "North West",
	"Northants":  "Northamptonshire",
	"Northumb":   "Northumberland",
	"Notts":      "Nottinghamshire",
	"ON":         "Ontario",
	"Oxon":       "Oxfordshire",
	"PA":         "Pennsylvania",
	"Pembs":      "Pembrokeshire",
	"PerthKross": "Perth & Kinross",
	"QC":         "Quebec",
	"Qld":        "Queensland",
	"RhonddaCT":  "Rhondda Cynon Taff",
	"S Yorks":    "South Yorkshire",
	"SA":         "South Australia",
	"SC":         "South Carolina",
	"SI":         "South Island",
	"Scilly":     "Isles of Scilly",
	"Shrops":     "Shropshire",
	"Som":        "Somerset",
	"Staffs":     "Staffordshire",
	"TN":         "Tennessee",
	"TX":         "Texas",
	"Tas":        "Tasmania",
	"Tip":        "Tipperary",
	"Tyne+Wear":  "Tyne & Wear",
	"VA":         "Virginia",
	"ValeGlam":   "Vale of Glamorgan",
	"Vic":        "Victoria",
	"W Mids":     "West Midlands",
	"W Sussex":   "West Sussex",
	"W Yorks":    "West Yorkshire",
	"WA":         "Western Australia",
	"WC":         "Western Cape",
	"Warks":      "Warwickshire",
	"Waterfd":    "Waterford",
	"Wilts":      "Wiltshire",
	"Worcs":      "Worcestershire",
}

// LookupCounty expands a Dove county abbreviation.
// Unknown abbreviations are returned unchanged.
func LookupCounty(abbr string) string {
	if name, ok := countyNames[abbr]; ok {
		return name
	}
	return abbr
}

// MatchesCounty reports whether a tower county abbreviation matches the
// query, either as the abbreviation itself or its expanded name.
func MatchesCounty(abbr, query string) bool {
	if query == "" {
		return true
	}
	return strings.EqualFold(abbr, query) || strings.EqualFold(LookupCounty(abbr), query)
}
