package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizer descompone (NFD), elimina marcas diacríticas y recompone (NFC).
// "Bogotá" y "bogota" normalizan al mismo valor, lo que permite comparar
// destinos escritos con o sin tildes.
var normalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize devuelve s en minúsculas, sin tildes y sin espacios sobrantes.
// Es el valor que se persiste en destination_norm y el que se usa al filtrar.
func Normalize(s string) string {
	out, _, err := transform.String(normalizer, s)
	if err != nil {
		// Entrada no transformable: degradar a lower/trim sin quitar tildes
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
