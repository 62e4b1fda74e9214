package tableservice

import "strings"

// ToStorageName converts an application case field name (camel or pascal case) into the
// underscore separated, lower case storage name of its column.
//
//	"brandId"   -> "brand_id"
//	"SKUCode"   -> "sku_code"
//	"productID" -> "product_id"
//
// A run of capitals is an acronym and ends before a capital that starts a lower case word.
// Acronyms are lower-cased as a whole, other words only at their first letter.
// Characters that cannot start a word (digits, underscores, ...) act as separators.
func ToStorageName(field string) string {
	words := splitWords(field)

	for i, word := range words {
		if word == strings.ToUpper(word) {
			words[i] = strings.ToLower(word)
			continue
		}

		words[i] = strings.ToLower(word[:1]) + word[1:]
	}

	return strings.Join(words, "_")
}

func splitWords(s string) []string {
	words := make([]string, 0, 4)

	for i := 0; i < len(s); {
		if end, ok := matchAcronym(s, i); ok {
			words = append(words, s[i:end])
			i = end
			continue
		}

		if end, ok := matchWord(s, i); ok {
			words = append(words, s[i:end])
			i = end
			continue
		}

		i++
	}

	return words
}

// matchAcronym matches a capital followed by capitals or digits, which must end at the end of the
// input or right before a capital that is followed by a lower case letter or digit.
// The longest run satisfying that wins.
func matchAcronym(s string, start int) (int, bool) {
	if !isUpper(s[start]) {
		return 0, false
	}

	end := start + 1
	for end < len(s) && (isUpper(s[end]) || isDigit(s[end])) {
		end++
	}

	for k := end; k > start; k-- {
		if k == len(s) {
			return k, true
		}

		if isUpper(s[k]) && k+1 < len(s) && (isLower(s[k+1]) || isDigit(s[k+1])) {
			return k, true
		}
	}

	return 0, false
}

// matchWord matches a letter followed by lower case letters or digits.
func matchWord(s string, start int) (int, bool) {
	if !isUpper(s[start]) && !isLower(s[start]) {
		return 0, false
	}

	end := start + 1
	for end < len(s) && (isLower(s[end]) || isDigit(s[end])) {
		end++
	}

	return end, true
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
