// Package person maps a full MaIS person record into typed accessors.
//
// A Document never caches: every accessor walks the parsed tree again and
// returns fresh values in document order.
package person

import (
	"strings"

	"github.com/sul-dlss/mais-person-client/record"
	"github.com/sul-dlss/mais-person-client/xmlnav"
)

// homeAddressTypes are the address types HomeAddress accepts.
var homeAddressTypes = []string{"home", "permanent"}

const academicCouncilMember = "member of academic council"

// Name is one of the person's names (registered, display, ...).
type Name struct {
	Type       *string `json:"type,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	FullName   *string `json:"full_name,omitempty"`
	First      *string `json:"first_name,omitempty"`
	FirstNVal  *string `json:"first_nval,omitempty"`
	Middle     *string `json:"middle,omitempty"`
	MiddleNVal *string `json:"middle_nval,omitempty"`
	Last       *string `json:"last,omitempty"`
	LastNVal   *string `json:"last_nval,omitempty"`
}

// Title is a title held by the person, such as their job title.
type Title struct {
	Type       *string `json:"type,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	Title      *string `json:"title,omitempty"`
}

// Email is an email address with its user and host parts.
type Email struct {
	Type       *string `json:"type,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	FullEmail  *string `json:"full_email,omitempty"`
	User       *string `json:"user,omitempty"`
	Host       *string `json:"host,omitempty"`
}

// URL is a web address listed for the person.
type URL struct {
	Type       *string `json:"type,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	URL        *string `json:"url,omitempty"`
}

// Location is a coded location such as an office.
type Location struct {
	Code       *string `json:"code,omitempty"`
	Type       *string `json:"type,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	Location   *string `json:"location,omitempty"`
}

// Identifier is an external identifier such as an ORCID iD.
type Identifier struct {
	Type       *string `json:"type,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	NVal       *string `json:"nval,omitempty"`
	Value      *string `json:"value,omitempty"`
}

// Department is the organizational unit of an affiliation. In person records
// the organization is inlined: its text and identifiers sit on the department.
type Department struct {
	AffNum        *string `json:"affnum,omitempty"`
	Name          *string `json:"name,omitempty"`
	Organization  *string `json:"organization,omitempty"`
	AdminID       *string `json:"adminid,omitempty"`
	Level2OrgID   *string `json:"level2orgid,omitempty"`
	Level2OrgName *string `json:"level2orgname,omitempty"`
	RegID         *string `json:"regid,omitempty"`
}

// Affiliation is one of the person's affiliations with the university.
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

// EmergencyContact is someone to reach on the person's behalf.
type EmergencyContact struct {
	Number                  *string            `json:"number,omitempty"`
	Primary                 bool               `json:"primary"`
	SyncPermanent           bool               `json:"sync_permanent"`
	Visibility              *string            `json:"visibility,omitempty"`
	ContactName             *string            `json:"contact_name,omitempty"`
	ContactRelationship     *string            `json:"contact_relationship,omitempty"`
	ContactRelationshipCode *string            `json:"contact_relationship_code,omitempty"`
	ContactTelephones       []record.Telephone `json:"contact_telephones"`
	ContactAddress          *record.Address    `json:"contact_address,omitempty"`
}

// Document is a parsed person record.
type Document struct {
	xml *xmlnav.Document
}

// New parses raw person XML. Malformed input never fails; accessors simply
// return whatever the recovered tree holds.
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

// StanfordEndDate returns the trimmed end date, treating a blank attribute as
// absent.
func (d *Document) StanfordEndDate() *string {
	v := d.root().Attr("stanfordenddate")
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Names returns every name in document order.
func (d *Document) Names() []Name {
	nodes := d.root().All("//name")
	names := make([]Name, 0, len(nodes))
	for _, n := range nodes {
		first := n.First("first")
		middle := n.First("middle")
		last := n.First("last")
		names = append(names, Name{
			Type:       n.Attr("type"),
			Visibility: n.Attr("visibility"),
			FullName:   n.OwnText(),
			First:      first.Text(),
			FirstNVal:  first.Attr("nval"),
			Middle:     middle.Text(),
			MiddleNVal: middle.Attr("nval"),
			Last:       last.Text(),
			LastNVal:   last.Attr("nval"),
		})
	}
	return names
}

func (d *Document) nameOfType(t string) *Name {
	for _, name := range d.Names() {
		if record.Is(name.Type, t) {
			return &name
		}
	}
	return nil
}

// RegisteredName returns the name typed "registered".
func (d *Document) RegisteredName() *Name { return d.nameOfType("registered") }

// DisplayName returns the name typed "display".
func (d *Document) DisplayName() *Name { return d.nameOfType("display") }

// FirstName returns the registered first name.
func (d *Document) FirstName() *string {
	if n := d.RegisteredName(); n != nil {
		return n.First
	}
	return nil
}

// MiddleName returns the registered middle name.
func (d *Document) MiddleName() *string {
	if n := d.RegisteredName(); n != nil {
		return n.Middle
	}
	return nil
}

// LastName returns the registered last name.
func (d *Document) LastName() *string {
	if n := d.RegisteredName(); n != nil {
		return n.Last
	}
	return nil
}

// Titles returns every title in document order.
func (d *Document) Titles() []Title {
	nodes := d.root().All("//title")
	titles := make([]Title, 0, len(nodes))
	for _, n := range nodes {
		titles = append(titles, Title{
			Type:       n.Attr("type"),
			Visibility: n.Attr("visibility"),
			Title:      n.Text(),
		})
	}
	return titles
}

// JobTitle returns the title typed "job".
func (d *Document) JobTitle() *string {
	for _, title := range d.Titles() {
		if record.Is(title.Type, "job") {
			return title.Title
		}
	}
	return nil
}

// Gender returns the biodemo gender.
func (d *Document) Gender() *string {
	return d.root().First("//biodemo/gender").Text()
}

// BiodemoVisibility returns the visibility of the biodemo section.
func (d *Document) BiodemoVisibility() *string {
	return d.root().First("//biodemo").Attr("visibility")
}

// Addresses returns every address in the document, including those nested
// under affiliation places.
func (d *Document) Addresses() []record.Address {
	return record.BuildAddresses(d.root(), "//address")
}

// Telephones returns every telephone in the document.
func (d *Document) Telephones() []record.Telephone {
	return record.BuildTelephones(d.root(), "//telephone")
}

// Emails returns every email in document order.
func (d *Document) Emails() []Email {
	nodes := d.root().All("//email")
	emails := make([]Email, 0, len(nodes))
	for _, n := range nodes {
		emails = append(emails, Email{
			Type:       n.Attr("type"),
			Visibility: n.Attr("visibility"),
			FullEmail:  n.OwnText(),
			User:       n.First("user").Text(),
			Host:       n.First("host").Text(),
		})
	}
	return emails
}

// URLs returns every url in document order.
func (d *Document) URLs() []URL {
	nodes := d.root().All("//url")
	urls := make([]URL, 0, len(nodes))
	for _, n := range nodes {
		urls = append(urls, URL{
			Type:       n.Attr("type"),
			Visibility: n.Attr("visibility"),
			URL:        n.Text(),
		})
	}
	return urls
}

// Locations returns every location in document order.
func (d *Document) Locations() []Location {
	nodes := d.root().All("//location")
	locations := make([]Location, 0, len(nodes))
	for _, n := range nodes {
		locations = append(locations, Location{
			Code:       n.Attr("code"),
			Type:       n.Attr("type"),
			Visibility: n.Attr("visibility"),
			Location:   n.Text(),
		})
	}
	return locations
}

// Places returns every place in the document.
func (d *Document) Places() []record.Place {
	return record.BuildPlaces(d.root(), "//place")
}

// Affiliations returns every affiliation in document order.
func (d *Document) Affiliations() []Affiliation {
	nodes := d.root().All("//affiliation")
	affiliations := make([]Affiliation, 0, len(nodes))
	for _, n := range nodes {
		affiliations = append(affiliations, buildAffiliation(n))
	}
	return affiliations
}

func buildAffiliation(n xmlnav.Node) Affiliation {
	return Affiliation{
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
	}
}

func buildDepartment(n xmlnav.Node) *Department {
	if !n.Exists() {
		return nil
	}
	org := n.First("organization")
	return &Department{
		AffNum:        n.Attr("affnum"),
		Name:          n.OwnText(),
		Organization:  org.Text(),
		AdminID:       org.Attr("adminid"),
		Level2OrgID:   org.Attr("level2orgid"),
		Level2OrgName: org.Attr("level2orgname"),
		RegID:         org.Attr("regid"),
	}
}

// PrimaryAffiliation returns the affiliation numbered "1", or nil.
func (d *Document) PrimaryAffiliation() *Affiliation {
	for _, aff := range d.Affiliations() {
		if record.Is(aff.AffNum, "1") {
			return &aff
		}
	}
	return nil
}

// PrimaryRole is the type of the primary affiliation.
func (d *Document) PrimaryRole() *string {
	if aff := d.PrimaryAffiliation(); aff != nil {
		return aff.Type
	}
	return nil
}

// PrimaryOrgCode is the admin id of the primary affiliation's department.
func (d *Document) PrimaryOrgCode() *string {
	aff := d.PrimaryAffiliation()
	if aff == nil || aff.Department == nil {
		return nil
	}
	return aff.Department.AdminID
}

// PrimaryEffectiveDate is the effective date of the primary affiliation.
func (d *Document) PrimaryEffectiveDate() *string {
	if aff := d.PrimaryAffiliation(); aff != nil {
		return aff.Effective
	}
	return nil
}

// AcademicCouncil reports whether any affiliation carries academic_council
// affdata whose value is exactly "Member of Academic Council", ignoring case.
func (d *Document) AcademicCouncil() bool {
	for _, aff := range d.Affiliations() {
		for _, data := range aff.AffData {
			if record.Is(data.Type, "academic_council") &&
				data.Value != nil && strings.ToLower(*data.Value) == academicCouncilMember {
				return true
			}
		}
	}
	return false
}

// Identifiers returns every identifier in document order.
func (d *Document) Identifiers() []Identifier {
	nodes := d.root().All("//identifier")
	identifiers := make([]Identifier, 0, len(nodes))
	for _, n := range nodes {
		identifiers = append(identifiers, Identifier{
			Type:       n.Attr("type"),
			Visibility: n.Attr("visibility"),
			NVal:       n.Attr("nval"),
			Value:      n.Text(),
		})
	}
	return identifiers
}

// IdentifierByType returns the value of the first identifier of type t.
func (d *Document) IdentifierByType(t string) *string {
	for _, id := range d.Identifiers() {
		if record.Is(id.Type, t) {
			return id.Value
		}
	}
	return nil
}

// ORCID returns the identifier typed "orcid".
func (d *Document) ORCID() *string { return d.IdentifierByType("orcid") }

// DirectoryID returns the identifier typed "directory".
func (d *Document) DirectoryID() *string { return d.IdentifierByType("directory") }

// Privgroups returns the privilege group names.
func (d *Document) Privgroups() []string {
	return d.root().Texts("//privgroup")
}

// EduPersonPrimaryAffiliation returns the eduPerson primary affiliation.
func (d *Document) EduPersonPrimaryAffiliation() *string {
	return d.root().First("//edupersonprimaryaffiliation").Text()
}

// EduPersonAffiliations returns every eduPerson affiliation.
func (d *Document) EduPersonAffiliations() []string {
	return d.root().Texts("//edupersonaffiliation")
}

// EmergencyContacts returns every emergency contact in document order.
func (d *Document) EmergencyContacts() []EmergencyContact {
	nodes := d.root().All("//emergency_contact")
	contacts := make([]EmergencyContact, 0, len(nodes))
	for _, n := range nodes {
		contacts = append(contacts, buildEmergencyContact(n))
	}
	return contacts
}

func buildEmergencyContact(n xmlnav.Node) EmergencyContact {
	telephones := record.BuildTelephones(n, "contact_telephone")
	for i := range telephones {
		telephones[i].AffNum = nil
	}

	var address *record.Address
	if addrNode := n.First("contact_address"); addrNode.Exists() {
		a := record.BuildAddress(addrNode)
		address = &a
	}

	rel := n.First("contact_relationship")
	return EmergencyContact{
		Number:                  n.Attr("number"),
		Primary:                 record.Is(n.Attr("primary"), "true"),
		SyncPermanent:           record.Is(n.Attr("sync_permanent"), "true"),
		Visibility:              n.Attr("visibility"),
		ContactName:             n.First("contact_name").Text(),
		ContactRelationship:     rel.Text(),
		ContactRelationshipCode: rel.Attr("code"),
		ContactTelephones:       telephones,
		ContactAddress:          address,
	}
}

func (d *Document) addressOfType(types ...string) *record.Address {
	for _, addr := range d.Addresses() {
		for _, t := range types {
			if record.Is(addr.Type, t) {
				return &addr
			}
		}
	}
	return nil
}

// WorkAddress returns the first address typed "work".
func (d *Document) WorkAddress() *record.Address { return d.addressOfType("work") }

// HomeAddress returns the first address typed "home" or "permanent".
func (d *Document) HomeAddress() *record.Address { return d.addressOfType(homeAddressTypes...) }

func (d *Document) telephoneOfType(t string) *record.Telephone {
	for _, tel := range d.Telephones() {
		if record.Is(tel.Type, t) {
			return &tel
		}
	}
	return nil
}

// WorkPhone returns the first telephone typed "work".
func (d *Document) WorkPhone() *record.Telephone { return d.telephoneOfType("work") }

// MobilePhone returns the first telephone typed "mobile".
func (d *Document) MobilePhone() *record.Telephone { return d.telephoneOfType("mobile") }

// PrimaryEmail returns the full text of the email typed "primary".
func (d *Document) PrimaryEmail() *string {
	for _, email := range d.Emails() {
		if record.Is(email.Type, "primary") {
			return email.FullEmail
		}
	}
	return nil
}

// Homepage returns the url typed "homepage".
func (d *Document) Homepage() *string {
	for _, u := range d.URLs() {
		if record.Is(u.Type, "homepage") {
			return u.URL
		}
	}
	return nil
}
