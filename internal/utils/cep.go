package utils

import (
	"regexp"
	"strings"
)

var cepPattern = regexp.MustCompile(`^\d{8}$`)

// UFsBrasil lists the 27 Brazilian federative unit codes.
var UFsBrasil = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO",
	"MA", "MT", "MS", "MG", "PA", "PB", "PR", "PE", "PI",
	"RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// IsValidCEP reports whether s is a well-formed CEP: non-blank and exactly
// eight ASCII digits, no separators.
func IsValidCEP(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return cepPattern.MatchString(s)
}

// NormalizeCEP strips the hyphen and surrounding whitespace from a CEP as
// returned by ViaCEP ("01310-100" -> "01310100").
func NormalizeCEP(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "-", ""))
}

// IsValidUF reports whether uf is one of the 27 federative unit codes.
// Comparison is case-insensitive.
func IsValidUF(uf string) bool {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	for _, known := range UFsBrasil {
		if uf == known {
			return true
		}
	}
	return false
}
