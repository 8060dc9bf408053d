package normalize

import (
	"regexp"
	"strings"
)

var (
	amountRe = regexp.MustCompile(`^\d+(?:[.,]\d+)?(?:mg|mcg|ug|µg|g|kg|ml|l|iu|units?|%)?(?:/(?:ml|l|g|dose|tab|tablet))?$`)
	unitRe   = regexp.MustCompile(`^(?:mg|mcg|ug|µg|g|kg|ml|l|iu|units?)(?:/(?:ml|l|g|dose|tab|tablet))?$`)
)

var dosageForms = map[string]bool{
	"tablet": true, "tablets": true, "tab": true, "tabs": true,
	"capsule": true, "capsules": true, "cap": true, "caps": true,
	"oral": true, "solution": true, "suspension": true, "syrup": true,
	"injection": true, "er": true, "xr": true, "sr": true, "xl": true,
	"extended": true, "release": true, "daily": true, "once": true, "twice": true,
}

// stripDosage removes trailing dosage amounts, units and dosage forms from a
// folded name: "zocor 20 mg tablets" -> "zocor". At least one token is kept.
func stripDosage(key string) string {
	tokens := strings.Fields(strings.NewReplacer("(", " ", ")", " ", ",", " ").Replace(key))
	end := len(tokens)
	for end > 1 {
		t := tokens[end-1]
		if amountRe.MatchString(t) || unitRe.MatchString(t) || dosageForms[t] {
			end--
			continue
		}
		break
	}
	return strings.Join(tokens[:end], " ")
}

// singulars returns singular candidates for the last word, most specific first.
func singulars(key string) []string {
	head, last := splitLast(key)
	var out []string
	switch {
	case strings.HasSuffix(last, "ies") && len(last) > 3:
		out = append(out, head+last[:len(last)-3]+"y")
	case strings.HasSuffix(last, "oes") && len(last) > 3:
		out = append(out, head+last[:len(last)-2])
	}
	if strings.HasSuffix(last, "es") && len(last) > 2 {
		out = append(out, head+last[:len(last)-2])
	}
	if strings.HasSuffix(last, "s") && !strings.HasSuffix(last, "ss") && len(last) > 1 {
		out = append(out, head+last[:len(last)-1])
	}
	return out
}

// plurals returns plural candidates for the last word.
func plurals(key string) []string {
	head, last := splitLast(key)
	if last == "" {
		return nil
	}
	var out []string
	if strings.HasSuffix(last, "y") && len(last) > 1 && !isVowel(last[len(last)-2]) {
		out = append(out, head+last[:len(last)-1]+"ies")
	}
	for _, suf := range []string{"s", "x", "z", "ch", "sh", "o"} {
		if strings.HasSuffix(last, suf) {
			out = append(out, head+last+"es")
			break
		}
	}
	return append(out, head+last+"s")
}

func splitLast(key string) (string, string) {
	i := strings.LastIndexByte(key, ' ')
	if i < 0 {
		return "", key
	}
	return key[:i+1], key[i+1:]
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
