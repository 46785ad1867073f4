package file

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// disallowedNameChars matches everything outside letters, digits, space and -_~,;:[]().
// plus any run of two or more dots.
var disallowedNameChars = regexp.MustCompile(`[^A-Za-z0-9_ \-~,;:\[\]().]|\.{2,}`)

// SanitizeName returns the storable form of a client-declared file name without its
// extension. Accented letters are folded to ASCII, then anything outside the allowed
// character set is dropped, which also removes path separators and control characters.
//
// Example:
//
//	file.SanitizeName("Résumé (final).PDF") // "Resume (final)"
//	file.SanitizeName("../../etc/passwd")   // "etcpasswd"
func SanitizeName(name string) string {
	return stem(cleanName(name))
}

// cleanName sanitizes the full name, extension included.
func cleanName(name string) string {
	return disallowedNameChars.ReplaceAllString(foldToASCII(name), "")
}

func stem(name string) string {
	return strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
}

func foldToASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
