// Package gazetteer carries the reference dictionaries used to interpret
// place names: country codes and alternate country names, US and Canadian
// state tables, US county names, and the celestial-object blocklist.
package gazetteer

import (
	"bufio"
	"bytes"
	_ "embed"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
)

//go:embed data/country_codes.txt
var countryData []byte

//go:embed data/us_counties.txt
var countyData []byte

//go:embed data/celestial.txt
var celestialData []byte

// Fixed column offsets in country_codes.txt.
const (
	colCode2    = 48
	colOldCode2 = 51
	colCode3    = 56
	colFlag     = 59
	colAltForms = 76
)

// Gazetteer holds the loaded dictionaries. All maps are read-only after
// Load, so a *Gazetteer may be shared freely across goroutines.
type Gazetteer struct {
	nameToCode3     map[string]string // simplified name or alt form -> code3
	code2ToCode3    map[string]string
	oldCode2ToCode3 map[string]string
	code3ToName     map[string]string
	code3ToCode2    map[string]string
	code3ToOld2     map[string]string
	flagged         map[string]bool // code3 -> has flag asset
	usStateByKey    map[string]string // simplified long name -> abbrev
	caProvinceByKey map[string]string
	usCounties      map[string]bool // "HILLSBOROUGH,NH"
	celestial       map[string]bool // simplified names
	loadedAt        time.Time
}

var current atomic.Pointer[Gazetteer]

// Load parses the embedded data files into a fresh Gazetteer.
func Load() (*Gazetteer, error) {
	g := &Gazetteer{
		nameToCode3:     map[string]string{},
		code2ToCode3:    map[string]string{},
		oldCode2ToCode3: map[string]string{},
		code3ToName:     map[string]string{},
		code3ToCode2:    map[string]string{},
		code3ToOld2:     map[string]string{},
		flagged:         map[string]bool{},
		usStateByKey:    map[string]string{},
		caProvinceByKey: map[string]string{},
		usCounties:      map[string]bool{},
		celestial:       map[string]bool{},
		loadedAt:        time.Now(),
	}

	if err := g.parseCountries(countryData); err != nil {
		return nil, eris.Wrap(err, "gazetteer: parsing country codes")
	}

	for name, abbr := range usStates {
		g.usStateByKey[atlas.Simplify(name, false)] = abbr
	}
	for name, abbr := range caProvinces {
		g.caProvinceByKey[atlas.Simplify(name, false)] = abbr
	}

	scan := bufio.NewScanner(bytes.NewReader(countyData))
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if county, state, ok := strings.Cut(line, ","); ok {
			key := atlas.Simplify(county, false) + "," + strings.TrimSpace(state)
			g.usCounties[key] = true
		}
	}

	scan = bufio.NewScanner(bytes.NewReader(celestialData))
	for scan.Scan() {
		if name := strings.TrimSpace(scan.Text()); name != "" {
			g.celestial[atlas.Simplify(name, false)] = true
		}
	}

	return g, nil
}

func (g *Gazetteer) parseCountries(data []byte) error {
	scan := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0

	for scan.Scan() {
		lineNo++
		line := scan.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) < colFlag+1 {
			return eris.Errorf("gazetteer: short line %d in country data", lineNo)
		}

		name := strings.TrimSpace(line[:colCode2])
		code2 := strings.TrimSpace(line[colCode2 : colCode2+2])
		old2 := strings.TrimSpace(line[colOldCode2 : colOldCode2+2])
		code3 := strings.TrimSpace(line[colCode3 : colCode3+3])
		hasFlag := line[colFlag] == 'Y'

		if name == "" || code3 == "" {
			return eris.Errorf("gazetteer: malformed line %d in country data", lineNo)
		}

		g.code3ToName[code3] = name
		g.nameToCode3[atlas.Simplify(name, false)] = code3

		if code2 != "" {
			g.code2ToCode3[code2] = code3
			g.code3ToCode2[code3] = code2
		}
		if old2 != "" {
			g.oldCode2ToCode3[old2] = code3
			g.code3ToOld2[code3] = old2
		}
		if hasFlag {
			g.flagged[code3] = true
		}
		if len(line) > colAltForms {
			for _, alt := range strings.Split(line[colAltForms:], ";") {
				if alt = strings.TrimSpace(alt); alt != "" {
					g.nameToCode3[atlas.Simplify(alt, false)] = code3
				}
			}
		}
	}

	return scan.Err()
}

// Init loads the dictionaries and installs them as the shared instance.
// Safe to call more than once.
func Init() error {
	g, err := Load()
	if err != nil {
		return err
	}
	current.Store(g)
	zap.L().Info("gazetteer loaded",
		zap.Int("countries", len(g.code3ToName)),
		zap.Int("counties", len(g.usCounties)))
	return nil
}

// Instance returns the shared gazetteer, loading it on first use.
func Instance() *Gazetteer {
	if g := current.Load(); g != nil {
		return g
	}
	if err := Init(); err != nil {
		// The embedded data is part of the binary, so a parse failure is
		// a build defect rather than a runtime condition.
		zap.L().Error("gazetteer init failed", zap.Error(err))
		g := &Gazetteer{loadedAt: time.Now()}
		current.Store(g)
		return g
	}
	return current.Load()
}

// ReinitIfStale reloads the dictionaries when the shared instance is
// older than maxAge. Reload failures keep the previous instance.
func ReinitIfStale(maxAge time.Duration) {
	g := current.Load()
	if g == nil || time.Since(g.loadedAt) < maxAge {
		return
	}
	fresh, err := Load()
	if err != nil {
		zap.L().Warn("gazetteer reload failed, keeping previous data", zap.Error(err))
		return
	}
	current.Store(fresh)
}

// Age reports how long ago the dictionaries were loaded.
func (g *Gazetteer) Age() time.Duration { return time.Since(g.loadedAt) }

// ResolveCountry turns a country name, alternate name, 2-letter code, or
// 3-letter code into the canonical 3-letter code.
func (g *Gazetteer) ResolveCountry(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	upper := strings.ToUpper(s)
	if len(upper) == 3 {
		if _, ok := g.code3ToName[upper]; ok {
			return upper, true
		}
	}
	if len(upper) == 2 {
		if code3, ok := g.code2ToCode3[upper]; ok {
			return code3, true
		}
		if code3, ok := g.oldCode2ToCode3[upper]; ok {
			return code3, true
		}
	}
	if code3, ok := g.nameToCode3[atlas.Simplify(s, false)]; ok {
		return code3, true
	}
	return "", false
}

// CountryName returns the display name for a 3-letter country code.
func (g *Gazetteer) CountryName(code3 string) string {
	return g.code3ToName[code3]
}

// FlagCode returns the lowercase flag-asset code for a country, or ""
// when no flag asset exists.
func (g *Gazetteer) FlagCode(code3 string) string {
	if !g.flagged[code3] {
		return ""
	}
	if code2 := g.code3ToCode2[code3]; code2 != "" {
		return strings.ToLower(code2)
	}
	return ""
}

// StateAbbreviation maps a long US state or Canadian province name to
// its 2-letter abbreviation, returning the input unchanged when no
// mapping applies.
func (g *Gazetteer) StateAbbreviation(country3, state string) string {
	if len(state) <= 2 {
		return strings.ToUpper(state)
	}
	key := atlas.Simplify(state, false)
	switch country3 {
	case "USA":
		if abbr, ok := g.usStateByKey[key]; ok {
			return abbr
		}
	case "CAN":
		if abbr, ok := g.caProvinceByKey[key]; ok {
			return abbr
		}
	}
	return state
}

// StateLongName reverses StateAbbreviation for US states and Canadian
// provinces.
func (g *Gazetteer) StateLongName(abbr string) string {
	abbr = strings.ToUpper(abbr)
	for name, a := range usStates {
		if a == abbr {
			return name
		}
	}
	for name, a := range caProvinces {
		if a == abbr {
			return name
		}
	}
	return ""
}

// StatesAndProvinces lists every recognized US state and Canadian
// province long name, for the reference endpoint.
func (g *Gazetteer) StatesAndProvinces() []string {
	out := make([]string, 0, len(usStates)+len(caProvinces))
	seen := map[string]bool{}
	for name := range usStates {
		out = append(out, name)
		seen[usStates[name]] = true
	}
	for name := range caProvinces {
		if name == "Newfoundland" { // alias of Newfoundland and Labrador
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsKnownStateOrCountry reports whether token is a recognized state or
// province abbreviation, country code, or country name. It backs the
// search parser's state-slot detection.
func (g *Gazetteer) IsKnownStateOrCountry(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	upper := strings.ToUpper(token)
	for _, abbr := range usStates {
		if abbr == upper {
			return true
		}
	}
	for _, abbr := range caProvinces {
		if abbr == upper {
			return true
		}
	}
	if _, ok := g.code2ToCode3[upper]; ok {
		return true
	}
	if _, ok := g.oldCode2ToCode3[upper]; ok {
		return true
	}
	if _, ok := g.code3ToName[upper]; ok {
		return true
	}
	key := atlas.Simplify(token, false)
	if _, ok := g.nameToCode3[key]; ok {
		return true
	}
	if _, ok := g.usStateByKey[key]; ok {
		return true
	}
	if _, ok := g.caProvinceByKey[key]; ok {
		return true
	}
	return false
}

// CloseMatchForState reports whether the user's state/country target is
// compatible with a candidate's state and country. An empty target
// matches anything. Matching is a diacritical-insensitive prefix test
// against the candidate's state, its long form, the country code, the
// old country code, and the country's display name.
func (g *Gazetteer) CloseMatchForState(target, state, country3 string) bool {
	if target == "" {
		return true
	}

	candidates := []string{state, country3}
	if len(state) == 2 {
		if long := g.StateLongName(state); long != "" {
			candidates = append(candidates, long)
		}
	}
	if name := g.code3ToName[country3]; name != "" {
		candidates = append(candidates, name)
	}
	if code2 := g.code3ToCode2[country3]; code2 != "" {
		candidates = append(candidates, code2)
	}
	if old2 := g.code3ToOld2[country3]; old2 != "" {
		candidates = append(candidates, old2)
	}
	// Great Britain has no single agreed name; accept the common ones.
	if country3 == "GBR" {
		candidates = append(candidates, "Great Britain", "England", "UK")
	}

	for _, c := range candidates {
		if c != "" && atlas.StartsWithICND(c, target) {
			return true
		}
	}
	return false
}

// IsUSCounty reports whether the given county name is a recognized
// county of the given US state.
func (g *Gazetteer) IsUSCounty(county, stateAbbr string) bool {
	return g.usCounties[atlas.Simplify(county, false)+","+strings.ToUpper(stateAbbr)]
}

// IsCelestial reports whether the name belongs to an astronomical
// object rather than a terrestrial place.
func (g *Gazetteer) IsCelestial(name string) bool {
	return g.celestial[atlas.Simplify(name, false)]
}
