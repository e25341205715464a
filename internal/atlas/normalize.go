package atlas

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxKeyLength caps simplified search keys, matching the atlas2.key_name
// column width.
const maxKeyLength = 40

// translit maps code points that do not reduce to a single ASCII letter via
// decomposition: ligatures, crossed letters, and typographic punctuation.
var translit = map[rune]string{
	'Æ': "Ae", 'æ': "ae",
	'Œ': "Oe", 'œ': "oe",
	'Ĳ': "Ij", 'ĳ': "ij",
	'ß': "ss", 'ẞ': "Ss",
	'Þ': "Th", 'þ': "th",
	'Ð': "D", 'ð': "d",
	'Đ': "D", 'đ': "d",
	'Ø': "O", 'ø': "o",
	'Ħ': "H", 'ħ': "h",
	'Ł': "L", 'ł': "l",
	'Ŋ': "Ng", 'ŋ': "ng",
	'Ŧ': "T", 'ŧ': "t",
	'ı': "i", 'ſ': "s",
	'Ś': "S", // fast path; decomposition handles the rest of Latin Extended A
	'—': "--", '―': "--",
	'–': "-", '‒': "-", '‐': "-", '‑': "-",
	'…': "...",
	'‘': "'", '’': "'", '‚': "'",
	'“': "\"", '”': "\"", '„': "\"",
	'«': "\"", '»': "\"",
	' ': " ",
}

// decorative maps symbols whose transliterations are multi-character but
// merely ornamental. They are suppressed in file-name mode.
var decorative = map[rune]string{
	'™': "(TM)",
	'©': "(c)",
	'®': "(R)",
	'°': "deg",
	'±': "+/-",
	'×': "x",
	'÷': "/",
}

// fileNameSafe substitutes shell/path-hostile ASCII characters.
var fileNameSafe = map[rune]rune{
	'"': '\'',
	'[': '(',
	']': ')',
	'*': '+',
	'/': '-',
	'\\': '-',
	':': '-',
	';': ',',
	'<': '(',
	'>': ')',
	'?': '!',
	'|': '-',
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// PlainASCII folds arbitrary text to printable ASCII. Characters outside
// [0x20,0x7E] are transliterated, diacritic-stripped, or replaced with "_".
func PlainASCII(s string) string {
	return plainASCII(s, false)
}

// PlainASCIIFileName folds text to ASCII that is additionally safe to use as
// a file name: path-hostile characters and a leading "." are substituted, and
// decorative multi-character transliterations are suppressed.
func PlainASCIIFileName(s string) string {
	return plainASCII(s, true)
}

func plainASCII(s string, forFileName bool) string {
	var b strings.Builder
	b.Grow(len(s))

	for i, ch := range s {
		switch {
		case ch >= 0x20 && ch <= 0x7E:
			if forFileName {
				if sub, ok := fileNameSafe[ch]; ok {
					b.WriteRune(sub)
					continue
				}
				if ch == '.' && i == 0 {
					b.WriteByte('_')
					continue
				}
			}
			b.WriteRune(ch)

		case ch >= 0x0300 && ch <= 0x036F:
			// Combining marks are dropped.

		default:
			if t, ok := translit[ch]; ok {
				b.WriteString(t)
				continue
			}
			if t, ok := decorative[ch]; ok {
				if !forFileName {
					b.WriteString(t)
				}
				continue
			}
			if t := stripRuneMarks(ch); t != "" {
				b.WriteString(t)
				continue
			}
			b.WriteByte('_')
		}
	}

	return b.String()
}

// stripRuneMarks decomposes one rune and keeps what reduces to ASCII.
func stripRuneMarks(ch rune) string {
	stripped, _, err := transform.String(stripMarks, string(ch))
	if err != nil {
		return ""
	}
	for _, r := range stripped {
		if r > 0x7E {
			return ""
		}
	}
	return stripped
}

// wordAbbreviations compresses common place-name words into the forms used
// by atlas2 key names.
var wordAbbreviations = map[string]string{
	"FORT":   "FT",
	"MOUNT":  "MT",
	"POINT":  "PT",
	"SAINT":  "ST",
	"SAINTE": "STE",
}

// variantPrefixes are stripped from the front of a simplified name when
// building the variant key. Space-free, longest first.
var variantPrefixes = []string{
	"CANONDE", "ILEDE", "ILEDU", "MOUNT", "CERRO", "POINT",
	"ILED", "ILES", "ILSA", "LAKE", "FORT",
	"LAS", "LOS", "THE",
	"FT", "LA", "LE", "MT", "PT",
}

// Simplify reduces a place name to its canonical 40-character search key:
// ASCII upper case, letters and digits only, common words abbreviated,
// spaces deleted. With asVariant, a leading generic prefix (LAKE, MT, THE,
// ...) is also stripped.
func Simplify(s string, asVariant bool) string {
	// Drop any parenthetical tail.
	if idx := strings.Index(s, "("); idx >= 0 {
		s = s[:idx]
	}

	s = strings.ToUpper(PlainASCII(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == ' ':
			b.WriteRune(ch)
		case ch == '-' || ch == '.':
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	for i, w := range words {
		if abbr, ok := wordAbbreviations[w]; ok {
			words[i] = abbr
		}
	}

	key := strings.Join(words, "")

	if asVariant {
		for _, prefix := range variantPrefixes {
			if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
				key = key[len(prefix):]
				break
			}
		}
	}

	if len(key) > maxKeyLength {
		key = key[:maxKeyLength]
	}

	return key
}

// StartsWithICND reports whether name begins with prefix, ignoring case,
// diacritics, and punctuation on both sides.
func StartsWithICND(name, prefix string) bool {
	return strings.HasPrefix(Simplify(name, false), Simplify(prefix, false))
}

// CloseMatchForCity reports whether a candidate city name is close enough to
// the search target: the target must be a simplified prefix of the candidate
// name or of its variant form.
func CloseMatchForCity(target, city string) bool {
	if target == "" {
		return true
	}
	return StartsWithICND(city, target) ||
		strings.HasPrefix(Simplify(city, true), Simplify(target, false))
}
