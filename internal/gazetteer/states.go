package gazetteer

// usStates maps full US state/territory names to postal abbreviations.
var usStates = map[string]string{
	"Alabama": "AL", "Alaska": "AK", "American Samoa": "AS", "Arizona": "AZ",
	"Arkansas": "AR", "California": "CA", "Colorado": "CO", "Connecticut": "CT",
	"Delaware": "DE", "District of Columbia": "DC", "Florida": "FL",
	"Georgia": "GA", "Guam": "GU", "Hawaii": "HI", "Idaho": "ID",
	"Illinois": "IL", "Indiana": "IN", "Iowa": "IA", "Kansas": "KS",
	"Kentucky": "KY", "Louisiana": "LA", "Maine": "ME", "Maryland": "MD",
	"Massachusetts": "MA", "Michigan": "MI", "Minnesota": "MN",
	"Mississippi": "MS", "Missouri": "MO", "Montana": "MT", "Nebraska": "NE",
	"Nevada": "NV", "New Hampshire": "NH", "New Jersey": "NJ",
	"New Mexico": "NM", "New York": "NY", "North Carolina": "NC",
	"North Dakota": "ND", "Northern Mariana Islands": "MP", "Ohio": "OH",
	"Oklahoma": "OK", "Oregon": "OR", "Pennsylvania": "PA",
	"Puerto Rico": "PR", "Rhode Island": "RI", "South Carolina": "SC",
	"South Dakota": "SD", "Tennessee": "TN", "Texas": "TX", "Utah": "UT",
	"Vermont": "VT", "Virgin Islands": "VI", "Virginia": "VA",
	"Washington": "WA", "West Virginia": "WV", "Wisconsin": "WI",
	"Wyoming": "WY",
}

// caProvinces maps full Canadian province/territory names to their
// two-letter abbreviations.
var caProvinces = map[string]string{
	"Alberta": "AB", "British Columbia": "BC", "Manitoba": "MB",
	"New Brunswick": "NB", "Newfoundland and Labrador": "NL",
	"Newfoundland": "NL", "Northwest Territories": "NT", "Nova Scotia": "NS",
	"Nunavut": "NU", "Ontario": "ON", "Prince Edward Island": "PE",
	"Quebec": "QC", "Saskatchewan": "SK", "Yukon": "YT",
}

// alaskaCensusAreas are the Alaska subdivisions that take the suffix
// "Census Area" rather than "Borough".
var alaskaCensusAreas = map[string]bool{
	"Aleutians West":        true,
	"Bethel":                true,
	"Dillingham":            true,
	"Hoonah-Angoon":         true,
	"Kusilvak":              true,
	"Nome":                  true,
	"Prince of Wales-Hyder": true,
	"Southeast Fairbanks":   true,
	"Valdez-Cordova":        true,
	"Wade Hampton":          true,
	"Yukon-Koyukuk":         true,
}
