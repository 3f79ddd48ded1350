// Package record holds the leaf records shared by the person and affiliation
// documents: addresses, telephones, affiliation data and places.
//
// Every optional field is a *string; nil means the attribute or element was
// absent from the source XML.
package record

import (
	"encoding/json"

	"github.com/sul-dlss/mais-person-client/xmlnav"
)

// AddressLine holds the <line> children of an address. When the address has
// exactly one line it is reported as Text; with two or more lines they are
// reported, in order, as Lines. Addresses without lines carry a nil
// *AddressLine.
type AddressLine struct {
	Text  string
	Lines []string
}

// NewAddressLine collapses lines following the one-or-many rule. It returns
// nil for zero lines.
func NewAddressLine(lines []string) *AddressLine {
	switch len(lines) {
	case 0:
		return nil
	case 1:
		return &AddressLine{Text: lines[0]}
	default:
		return &AddressLine{Lines: lines}
	}
}

// IsMulti reports whether the address had two or more lines.
func (l *AddressLine) IsMulti() bool {
	return l != nil && len(l.Lines) > 0
}

// All returns every line in order regardless of how they were collapsed.
func (l *AddressLine) All() []string {
	switch {
	case l == nil:
		return nil
	case l.IsMulti():
		return l.Lines
	default:
		return []string{l.Text}
	}
}

// MarshalJSON encodes a single line as a string and several lines as an array.
func (l AddressLine) MarshalJSON() ([]byte, error) {
	if len(l.Lines) > 0 {
		return json.Marshal(l.Lines)
	}
	return json.Marshal(l.Text)
}

// Address is a postal address.
type Address struct {
	AffNum         *string      `json:"affnum,omitempty"`
	Type           *string      `json:"type,omitempty"`
	Visibility     *string      `json:"visibility,omitempty"`
	FullAddress    *string      `json:"full_address,omitempty"`
	Line           *AddressLine `json:"line,omitempty"`
	City           *string      `json:"city,omitempty"`
	State          *string      `json:"state,omitempty"`
	StateCode      *string      `json:"state_code,omitempty"`
	PostalCode     *string      `json:"postal_code,omitempty"`
	Country        *string      `json:"country,omitempty"`
	CountryAlpha2  *string      `json:"country_alpha2,omitempty"`
	CountryAlpha3  *string      `json:"country_alpha3,omitempty"`
	CountryNumeric *string      `json:"country_numeric,omitempty"`
}

// Telephone is a phone number broken into its parts.
type Telephone struct {
	AffNum     *string `json:"affnum,omitempty"`
	Type       *string `json:"type,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	FullNumber *string `json:"full_number,omitempty"`
	ICC        *string `json:"icc,omitempty"`
	Area       *string `json:"area,omitempty"`
	Number     *string `json:"number,omitempty"`
}

// AffData is a typed key/value extension attached to an affiliation, such as
// a job code, standard hours or the academic council flag.
type AffData struct {
	AffNum *string `json:"affnum,omitempty"`
	Type   *string `json:"type,omitempty"`
	Code   *string `json:"code,omitempty"`
	Value  *string `json:"value,omitempty"`
}

// Place is a physical location tied to an affiliation, with its own
// addresses and telephones.
type Place struct {
	AffNum     *string     `json:"affnum,omitempty"`
	Type       *string     `json:"type,omitempty"`
	Addresses  []Address   `json:"address"`
	QBFR       *string     `json:"qbfr,omitempty"`
	Telephones []Telephone `json:"telephone"`
}

// BuildAddress maps an address-shaped element (address, contact_address).
func BuildAddress(n xmlnav.Node) Address {
	state := n.First("state")
	country := n.First("country")
	return Address{
		AffNum:         n.Attr("affnum"),
		Type:           n.Attr("type"),
		Visibility:     n.Attr("visibility"),
		FullAddress:    n.OwnText(),
		Line:           NewAddressLine(n.Texts("line")),
		City:           n.First("city").Text(),
		State:          state.Text(),
		StateCode:      state.Attr("code"),
		PostalCode:     n.First("postalcode").Text(),
		Country:        country.Text(),
		CountryAlpha2:  country.Attr("alpha2"),
		CountryAlpha3:  country.Attr("alpha3"),
		CountryNumeric: country.Attr("numeric"),
	}
}

// BuildAddresses maps every element matching path under n.
func BuildAddresses(n xmlnav.Node, path string) []Address {
	nodes := n.All(path)
	addresses := make([]Address, 0, len(nodes))
	for _, node := range nodes {
		addresses = append(addresses, BuildAddress(node))
	}
	return addresses
}

// BuildTelephone maps a telephone-shaped element (telephone, contact_telephone).
func BuildTelephone(n xmlnav.Node) Telephone {
	return Telephone{
		AffNum:     n.Attr("affnum"),
		Type:       n.Attr("type"),
		Visibility: n.Attr("visibility"),
		FullNumber: n.OwnText(),
		ICC:        n.First("icc").Text(),
		Area:       n.First("area").Text(),
		Number:     n.First("number").Text(),
	}
}

// BuildTelephones maps every element matching path under n.
func BuildTelephones(n xmlnav.Node, path string) []Telephone {
	nodes := n.All(path)
	telephones := make([]Telephone, 0, len(nodes))
	for _, node := range nodes {
		telephones = append(telephones, BuildTelephone(node))
	}
	return telephones
}

// BuildAffData maps the affdata children of an affiliation element.
func BuildAffData(aff xmlnav.Node) []AffData {
	nodes := aff.All("affdata")
	data := make([]AffData, 0, len(nodes))
	for _, node := range nodes {
		data = append(data, AffData{
			AffNum: node.Attr("affnum"),
			Type:   node.Attr("type"),
			Code:   node.Attr("code"),
			Value:  node.Text(),
		})
	}
	return data
}

// BuildPlace maps a place element with its nested addresses and telephones.
func BuildPlace(n xmlnav.Node) Place {
	return Place{
		AffNum:     n.Attr("affnum"),
		Type:       n.Attr("type"),
		Addresses:  BuildAddresses(n, "address"),
		QBFR:       n.First("qbfr").Text(),
		Telephones: BuildTelephones(n, "telephone"),
	}
}

// BuildPlaces maps every element matching path under n.
func BuildPlaces(n xmlnav.Node, path string) []Place {
	nodes := n.All(path)
	places := make([]Place, 0, len(nodes))
	for _, node := range nodes {
		places = append(places, BuildPlace(node))
	}
	return places
}

// Is reports whether an optional field is present and equal to want.
func Is(field *string, want string) bool {
	return field != nil && *field == want
}

// Value returns the field's value, or "" when it is absent.
func Value(field *string) string {
	if field == nil {
		return ""
	}
	return *field
}
