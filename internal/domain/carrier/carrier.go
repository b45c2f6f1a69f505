// Package carrier holds the static table translating canonical shipping
// carriers into each channel's own carrier code.
package carrier

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/shared"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Carrier is a canonical carrier identity plus one code per channel
type Carrier struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Cafe24Code  string `json:"cafe24Code"`
	NaverCode   string `json:"naverCode"`
	CoupangCode string `json:"coupangCode"`
}

// Code returns the carrier code used by the given channel, or "" if none
func (c Carrier) Code(ch channel.Channel) string {
	switch ch {
	case channel.Cafe24:
		return c.Cafe24Code
	case channel.Naver:
		return c.NaverCode
	case channel.Coupang:
		return c.CoupangCode
	}
	return ""
}

// Registry is immutable reference data; safe for concurrent use
type Registry struct {
	carriers []Carrier
	byValue  map[string]Carrier
	byCode   map[channel.Channel]map[string]Carrier
}

var defaultCarriers = []Carrier{
	{Value: "cj", Label: "CJ대한통운", Cafe24Code: "0004", NaverCode: "CJGLS", CoupangCode: "CJGLS"},
	{Value: "lotte", Label: "롯데택배", Cafe24Code: "0008", NaverCode: "LOTTE", CoupangCode: "LOTTE"},
	{Value: "hanjin", Label: "한진택배", Cafe24Code: "0018", NaverCode: "HANJIN", CoupangCode: "HANJIN"},
	{Value: "epost", Label: "우체국택배", Cafe24Code: "0006", NaverCode: "EPOST", CoupangCode: "EPOST"},
	{Value: "logen", Label: "로젠택배", Cafe24Code: "0005", NaverCode: "LOGEN", CoupangCode: "LOGEN"},
	{Value: "kdexp", Label: "경동택배", Cafe24Code: "0023", NaverCode: "KDEXP", CoupangCode: "KDEXP"},
	{Value: "daesin", Label: "대신택배", Cafe24Code: "0022", NaverCode: "DAESIN", CoupangCode: "DAESIN"},
	{Value: "ilyang", Label: "일양로지스", Cafe24Code: "0011", NaverCode: "ILYANG", CoupangCode: "ILYANG"},
	{Value: "chunil", Label: "천일택배", Cafe24Code: "0017", NaverCode: "CHUNIL", CoupangCode: "CHUNIL"},
	{Value: "hdexp", Label: "합동택배", Cafe24Code: "0032", NaverCode: "HDEXP", CoupangCode: "HDEXP"},
	{Value: "cu", Label: "CU편의점택배", Cafe24Code: "0046", NaverCode: "CUPOST", CoupangCode: "CUPOST"},
	{Value: "gs", Label: "GS편의점택배", Cafe24Code: "0047", NaverCode: "GSPOST", CoupangCode: "GSPOST"},
	{Value: "etc", Label: "기타", Cafe24Code: "0000", NaverCode: "ETC", CoupangCode: "ETC"},
}

// legacy Cafe24 codes still seen on older orders
var cafe24Aliases = map[string]string{
	"0001": "hanjin",
}

// Default returns the registry of supported carriers
func Default() *Registry {
	return New(defaultCarriers)
}

// New builds a registry from the given carriers
func New(carriers []Carrier) *Registry {
	r := &Registry{
		carriers: append([]Carrier(nil), carriers...),
		byValue:  make(map[string]Carrier, len(carriers)),
		byCode:   make(map[channel.Channel]map[string]Carrier),
	}
	for _, ch := range channel.All() {
		r.byCode[ch] = make(map[string]Carrier, len(carriers))
	}
	for _, c := range r.carriers {
		r.byValue[c.Value] = c
		for _, ch := range channel.All() {
			if code := c.Code(ch); code != "" {
				r.byCode[ch][strings.ToUpper(code)] = c
			}
		}
	}
	for code, value := range cafe24Aliases {
		if c, ok := r.byValue[value]; ok {
			r.byCode[channel.Cafe24][code] = c
		}
	}
	return r
}

// All returns a copy of every carrier in table order
func (r *Registry) All() []Carrier {
	return append([]Carrier(nil), r.carriers...)
}

// Get looks a carrier up by canonical value (case-insensitive)
func (r *Registry) Get(value string) (Carrier, bool) {
	c, ok := r.byValue[strings.ToLower(strings.TrimSpace(value))]
	return c, ok
}

// ByChannelCode translates a channel's carrier code back to the canonical carrier
func (r *Registry) ByChannelCode(ch channel.Channel, code string) (Carrier, bool) {
	codes, ok := r.byCode[ch]
	if !ok {
		return Carrier{}, false
	}
	c, ok := codes[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// ByLabel finds the first carrier whose normalized label contains the
// normalized input ("cj 대한통운" matches "CJ대한통운").
func (r *Registry) ByLabel(label string) (Carrier, bool) {
	needle := normalizeLabel(label)
	if needle == "" {
		return Carrier{}, false
	}
	for _, c := range r.carriers {
		if strings.Contains(normalizeLabel(c.Label), needle) {
			return c, true
		}
	}
	return Carrier{}, false
}

// Resolve accepts any form a person may type into an import file: canonical
// value, display label, Naver/Coupang code (case-insensitive) or exact Cafe24 code.
func (r *Registry) Resolve(input string) (Carrier, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Carrier{}, false
	}
	if c, ok := r.Get(input); ok {
		return c, true
	}
	if c, ok := r.ByLabel(input); ok {
		return c, true
	}
	upper := strings.ToUpper(input)
	for _, c := range r.carriers {
		if strings.ToUpper(c.NaverCode) == upper || strings.ToUpper(c.CoupangCode) == upper || c.Cafe24Code == input {
			return c, true
		}
	}
	return Carrier{}, false
}

// ChannelCode returns the code the channel expects for the canonical carrier.
// The error wraps shared.ErrUnsupportedCarrier when no mapping exists.
func (r *Registry) ChannelCode(value string, ch channel.Channel) (string, error) {
	c, ok := r.Get(value)
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrUnsupportedCarrier, value)
	}
	code := c.Code(ch)
	if code == "" {
		return "", fmt.Errorf("%w: %s on %s", shared.ErrUnsupportedCarrier, value, ch)
	}
	return code, nil
}

// normalizeLabel composes Hangul jamo (NFD file names from macOS), folds
// full-width Latin letters, lowercases and drops whitespace.
func normalizeLabel(s string) string {
	s = width.Fold.String(norm.NFC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
