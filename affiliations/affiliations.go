// Package affiliations maps the affiliation history document returned by
// /doc/person/{sunetid}/affiliation.
package affiliations

import (
	"strings"

	"github.com/sul-dlss/mais-person-client/record"
	"github.com/sul-dlss/mais-person-client/xmlnav"
)

const primaryOrgPath = "//affiliation[@affnum='1']//organization"

// Organization identifies the unit a department belongs to.
type Organization struct {
	AcadID        *string `json:"acadid,omitempty"`
	AdminID       *string `json:"adminid,omitempty"`
	Level2OrgID   *string `json:"level2orgid,omitempty"`
	Level2OrgName *string `json:"level2orgname,omitempty"`
	RegID         *string `json:"regid,omitempty"`
	Name          *string `json:"name,omitempty"`
}

// Department is the organizational unit of an affiliation.
type Department struct {
	AffNum       *string       `json:"affnum,omitempty"`
	Name         *string       `json:"name,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

// Affiliation is one entry of the affiliation history.
type Affiliation struct {
	AffNum       *string          `json:"affnum,omitempty"`
	Effective    *string          `json:"effective,omitempty"`
	Organization *string          `json:"organization,omitempty"`
	Type         *string          `json:"type,omitempty"`
	Visibility   *string          `json:"visibility,omitempty"`
	Name         *string          `json:"name,omitempty"`
	Department   *Department      `json:"department,omitempty"`
	Description  *string          `json:"description,omitempty"`
	AffData      []record.AffData `json:"affdata"`
	Places       []record.Place   `json:"place"`
}

// TypeContains reports whether the affiliation type contains s. Types are
// free-text tags such as "faculty" or "student,nonactive".
func (a Affiliation) TypeContains(s string) bool {
	return a.Type != nil && strings.Contains(*a.Type, s)
}

// Document is a parsed affiliation history.
type Document struct {
	xml *xmlnav.Document
}

// New parses raw affiliation XML. Malformed input never fails.
func New(raw string) *Document {
	return &Document{xml: xmlnav.Parse(raw)}
}

// XML exposes the underlying parsed tree.
func (d *Document) XML() *xmlnav.Document {
	return d.xml
}

func (d *Document) root() xmlnav.Node {
	return d.xml.Root()
}

// Card returns the root card attribute.
func (d *Document) Card() *string { return d.root().Attr("card") }

// Listing returns the directory listing attribute.
func (d *Document) Listing() *string { return d.root().Attr("listing") }

// NameAttr returns the root name attribute.
func (d *Document) NameAttr() *string { return d.root().Attr("name") }

// RegID returns the registry id.
func (d *Document) RegID() *string { return d.root().Attr("regid") }

// Relationship returns the person's relationship to the university.
func (d *Document) Relationship() *string { return d.root().Attr("relationship") }

// Source returns the record source attribute.
func (d *Document) Source() *string { return d.root().Attr("source") }

// SunetID returns the person's SUNet ID.
func (d *Document) SunetID() *string { return d.root().Attr("sunetid") }

// UnivID returns the university id.
func (d *Document) UnivID() *string { return d.root().Attr("univid") }

// Affiliations returns every affiliation in document order.
func (d *Document) Affiliations() []Affiliation {
	nodes := d.root().All("//affiliation")
	affiliations := make([]Affiliation, 0, len(nodes))
	for _, n := range nodes {
		affiliations = append(affiliations, Affiliation{
			AffNum:       n.Attr("affnum"),
			Effective:    n.Attr("effective"),
			Organization: n.Attr("organization"),
			Type:         n.Attr("type"),
			Visibility:   n.Attr("visibility"),
			Name:         n.OwnText(),
			Department:   buildDepartment(n.First("department")),
			Description:  n.First("description").Text(),
			AffData:      record.BuildAffData(n),
			Places:       record.BuildPlaces(n, "place"),
		})
	}
	return affiliations
}

func buildDepartment(n xmlnav.Node) *Department {
	if !n.Exists() {
		return nil
	}
	return &Department{
		AffNum:       n.Attr("affnum"),
		Name:         n.OwnText(),
		Organization: buildOrganization(n.First("organization")),
	}
}

func buildOrganization(n xmlnav.Node) *Organization {
	if !n.Exists() {
		return nil
	}
	return &Organization{
		AcadID:        n.Attr("acadid"),
		AdminID:       n.Attr("adminid"),
		Level2OrgID:   n.Attr("level2orgid"),
		Level2OrgName: n.Attr("level2orgname"),
		RegID:         n.Attr("regid"),
		Name:          n.Text(),
	}
}

func (d *Document) filter(keep func(Affiliation) bool) []Affiliation {
	var matched []Affiliation
	for _, aff := range d.Affiliations() {
		if keep(aff) {
			matched = append(matched, aff)
		}
	}
	return matched
}

// FacultyAffiliations returns affiliations whose type mentions "faculty",
// active or not.
func (d *Document) FacultyAffiliations() []Affiliation {
	return d.filter(func(a Affiliation) bool { return a.TypeContains("faculty") })
}

// StudentAffiliations returns affiliations whose type mentions "student".
func (d *Document) StudentAffiliations() []Affiliation {
	return d.filter(func(a Affiliation) bool { return a.TypeContains("student") })
}

// ActiveAffiliations drops every affiliation whose type mentions "nonactive".
// Affiliations without a type are kept.
func (d *Document) ActiveAffiliations() []Affiliation {
	return d.filter(func(a Affiliation) bool { return !a.TypeContains("nonactive") })
}

// PrimaryAffiliation returns the affiliation numbered "1".
func (d *Document) PrimaryAffiliation() *Affiliation {
	for _, aff := range d.Affiliations() {
		if record.Is(aff.AffNum, "1") {
			return &aff
		}
	}
	return nil
}

// OrgIDs returns the adminid of every organization element, first occurrence
// order, without duplicates.
func (d *Document) OrgIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, org := range d.root().All("//organization") {
		id := org.Attr("adminid")
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	return ids
}

// PrimaryOrgCode is the adminid of the first organization nested anywhere
// under the affiliation numbered "1".
func (d *Document) PrimaryOrgCode() *string {
	return d.root().First(primaryOrgPath).Attr("adminid")
}

// Summary is the JSON view used by the CLI.
type Summary struct {
	SunetID        *string       `json:"sunetid,omitempty"`
	Name           *string       `json:"name,omitempty"`
	Relationship   *string       `json:"relationship,omitempty"`
	PrimaryOrgCode *string       `json:"primary_org_code,omitempty"`
	OrgIDs         []string      `json:"org_ids"`
	Active         []Affiliation `json:"active"`
	Faculty        int           `json:"faculty_count"`
	Student        int           `json:"student_count"`
	Total          int           `json:"total_count"`
}

// Summary builds the CLI view of the document.
func (d *Document) Summary() Summary {
	return Summary{
		SunetID:        d.SunetID(),
		Name:           d.NameAttr(),
		Relationship:   d.Relationship(),
		PrimaryOrgCode: d.PrimaryOrgCode(),
		OrgIDs:         d.OrgIDs(),
		Active:         d.ActiveAffiliations(),
		Faculty:        len(d.FacultyAffiliations()),
		Student:        len(d.StudentAffiliations()),
		Total:          len(d.Affiliations()),
	}
}
