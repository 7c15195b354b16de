package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PropertyType is a normalised property category. Known categories use the
// constants below; anything else keeps its folded free-text form so two
// listings with the same custom label still compare equal.
type PropertyType string

const (
	TypeApartment  PropertyType = "apartment"
	TypeHouse      PropertyType = "house"
	TypeCommercial PropertyType = "commercial"
	TypeLand       PropertyType = "land"
	TypeStudio     PropertyType = "studio"
	TypePenthouse  PropertyType = "penthouse"
	TypeRural      PropertyType = "rural"
)

var propertyTypeSynonyms = map[string]PropertyType{
	"apartment":          TypeApartment,
	"apartamento":        TypeApartment,
	"apto":               TypeApartment,
	"flat":               TypeApartment,
	"house":              TypeHouse,
	"casa":               TypeHouse,
	"sobrado":            TypeHouse,
	"casa de condominio": TypeHouse,
	"commercial":         TypeCommercial,
	"comercial":          TypeCommercial,
	"sala comercial":     TypeCommercial,
	"loja":               TypeCommercial,
	"galpao":             TypeCommercial,
	"land":               TypeLand,
	"terreno":            TypeLand,
	"lote":               TypeLand,
	"studio":             TypeStudio,
	"kitnet":             TypeStudio,
	"loft":               TypeStudio,
	"penthouse":          TypePenthouse,
	"cobertura":          TypePenthouse,
	"rural":              TypeRural,
	"chacara":            TypeRural,
	"sitio":              TypeRural,
	"fazenda":            TypeRural,
}

// ParsePropertyType folds case and accents and maps known synonyms.
// An empty input yields the empty type, meaning "no preference".
func ParsePropertyType(raw string) PropertyType {
	key := fold(raw)
	if key == "" {
		return ""
	}
	if t, ok := propertyTypeSynonyms[key]; ok {
		return t
	}
	return PropertyType(key)
}

// Known reports whether t is one of the canonical categories.
func (t PropertyType) Known() bool {
	switch t {
	case TypeApartment, TypeHouse, TypeCommercial, TypeLand, TypeStudio, TypePenthouse, TypeRural:
		return true
	}
	return false
}

// fold builds its transformers per call; Casers are not safe for concurrent use.
func fold(raw string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripAccents, raw)
	if err != nil {
		plain = raw
	}
	return strings.Join(strings.Fields(cases.Fold().String(plain)), " ")
}
