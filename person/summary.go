package person

import "github.com/sul-dlss/mais-person-client/record"

// Summary is a flat, JSON-friendly view of the most used person fields.
type Summary struct {
	SunetID              *string            `json:"sunetid,omitempty"`
	UnivID               *string            `json:"univid,omitempty"`
	RegID                *string            `json:"regid,omitempty"`
	Name                 *string            `json:"name,omitempty"`
	DisplayName          *string            `json:"display_name,omitempty"`
	FirstName            *string            `json:"first_name,omitempty"`
	LastName             *string            `json:"last_name,omitempty"`
	Relationship         *string            `json:"relationship,omitempty"`
	JobTitle             *string            `json:"job_title,omitempty"`
	PrimaryEmail         *string            `json:"primary_email,omitempty"`
	Homepage             *string            `json:"homepage,omitempty"`
	ORCID                *string            `json:"orcid,omitempty"`
	PrimaryRole          *string            `json:"primary_role,omitempty"`
	PrimaryOrgCode       *string            `json:"primary_org_code,omitempty"`
	PrimaryEffectiveDate *string            `json:"primary_effective_date,omitempty"`
	StanfordEndDate      *string            `json:"stanford_end_date,omitempty"`
	AcademicCouncil      bool               `json:"academic_council"`
	WorkAddress          *record.Address    `json:"work_address,omitempty"`
	WorkPhone            *record.Telephone  `json:"work_phone,omitempty"`
	Affiliations         []Affiliation      `json:"affiliations"`
	Privgroups           []string           `json:"privgroups"`
	EmergencyContacts    []EmergencyContact `json:"emergency_contacts,omitempty"`
}

// Summary collects the document's headline fields.
func (d *Document) Summary() Summary {
	s := Summary{
		SunetID:              d.SunetID(),
		UnivID:               d.UnivID(),
		RegID:                d.RegID(),
		Name:                 d.NameAttr(),
		FirstName:            d.FirstName(),
		LastName:             d.LastName(),
		Relationship:         d.Relationship(),
		JobTitle:             d.JobTitle(),
		PrimaryEmail:         d.PrimaryEmail(),
		Homepage:             d.Homepage(),
		ORCID:                d.ORCID(),
		PrimaryRole:          d.PrimaryRole(),
		PrimaryOrgCode:       d.PrimaryOrgCode(),
		PrimaryEffectiveDate: d.PrimaryEffectiveDate(),
		StanfordEndDate:      d.StanfordEndDate(),
		AcademicCouncil:      d.AcademicCouncil(),
		WorkAddress:          d.WorkAddress(),
		WorkPhone:            d.WorkPhone(),
		Affiliations:         d.Affiliations(),
		Privgroups:           d.Privgroups(),
		EmergencyContacts:    d.EmergencyContacts(),
	}
	if dn := d.DisplayName(); dn != nil {
		s.DisplayName = dn.FullName
	}
	return s
}
