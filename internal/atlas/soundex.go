package atlas

// soundexCodes maps letters to classic SQL soundex digit groups.
var soundexCodes = map[byte]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Soundex computes the four-character SQL-style soundex code for a name,
// matching the values stored in the atlas2.sound column. Input is expected
// to be a simplified key; non-letters are ignored. Returns "" for input with
// no letters.
func Soundex(s string) string {
	s = Simplify(s, false)

	var letters []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			letters = append(letters, s[i])
		}
	}
	if len(letters) == 0 {
		return ""
	}

	code := []byte{letters[0], '0', '0', '0'}
	last := soundexCodes[letters[0]]
	n := 1

	for i := 1; i < len(letters) && n < 4; i++ {
		ch := letters[i]
		digit, ok := soundexCodes[ch]

		switch {
		case !ok && ch != 'H' && ch != 'W':
			// Vowels separate duplicate codes.
			last = 0
		case ok && digit != last:
			code[n] = digit
			n++
			last = digit
		}
	}

	return string(code)
}
