package match

import "strings"

var umlautFolder = strings.NewReplacer("ü", "u", "ä", "a", "ö", "o")

// eszettSubs are the forms OCR engines produce for ß in small chat type.
var eszettSubs = []string{"ss", "b", "fs", "8"}

// nameVariants returns the recognition variants of a lowercased name word:
// the word itself, its ß substitutions when applicable, and its
// umlaut-folded form.
func nameVariants(word string) []string {
	variants := []string{word}
	if strings.Contains(word, "ß") {
		for _, sub := range eszettSubs {
			variants = append(variants, strings.ReplaceAll(word, "ß", sub))
		}
	}
	return append(variants, umlautFolder.Replace(word))
}
