package affiliations

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sul-dlss/mais-person-client/person"
	"github.com/sul-dlss/mais-person-client/record"
)

func strPtr(s string) *string { return &s }

func loadSample(t *testing.T) *Document {
	t.Helper()
	raw, err := os.ReadFile("testdata/affiliations_sample.xml")
	require.NoError(t, err)
	return New(string(raw))
}

func TestDocument_RootAttributes(t *testing.T) {
	doc := loadSample(t)
	require.NoError(t, doc.XML().Err())

	assert.Equal(t, "Person", doc.XML().Root().Name())
	assert.Nil(t, doc.XML().Root().Attr("xmlns"))
	assert.Equal(t, strPtr("123456789012345"), doc.Card())
	assert.Equal(t, strPtr("world"), doc.Listing())
	assert.Equal(t, strPtr("Gadget, Inspector"), doc.NameAttr())
	assert.Equal(t, strPtr("FAKE-REGID-ABC123"), doc.RegID())
	assert.Equal(t, strPtr("faculty"), doc.Relationship())
	assert.Equal(t, strPtr("registry"), doc.Source())
	assert.Equal(t, strPtr("igadget"), doc.SunetID())
	assert.Equal(t, strPtr("00000001"), doc.UnivID())
}

func TestDocument_Affiliations(t *testing.T) {
	doc := loadSample(t)

	affiliations := doc.Affiliations()
	require.Len(t, affiliations, 4)
	first := affiliations[0]

	t.Run("attributes", func(t *testing.T) {
		assert.Equal(t, strPtr("1"), first.AffNum)
		assert.Equal(t, strPtr("2024-09-01"), first.Effective)
		assert.Equal(t, strPtr("stanford"), first.Organization)
		assert.Equal(t, strPtr("faculty"), first.Type)
		assert.Equal(t, strPtr("world"), first.Visibility)
		assert.Equal(t, strPtr("Faculty"), first.Name)
		assert.Equal(t, strPtr("Chief Inspector"), first.Description)
	})

	t.Run("department and organization", func(t *testing.T) {
		require.NotNil(t, first.Department)
		assert.Equal(t, strPtr("1"), first.Department.AffNum)
		assert.Equal(t, strPtr("Crime Detection"), first.Department.Name)

		require.NotNil(t, first.Department.Organization)
		assert.Equal(t, Organization{
			AcadID:        strPtr("CRIMEDET"),
			AdminID:       strPtr("CRIME"),
			Level2OrgID:   strPtr("DETECT"),
			Level2OrgName: strPtr("School of Investigation"),
			RegID:         strPtr("FAKE-ORG-DETECT-001"),
			Name:          strPtr("Crime Detection Operations"),
		}, *first.Department.Organization)

		assert.Nil(t, affiliations[2].Department.Organization.Level2OrgID)
	})

	t.Run("affdata", func(t *testing.T) {
		require.Len(t, first.AffData, 5)
		assert.Equal(t, strPtr("academic_council"), first.AffData[0].Type)
		assert.Equal(t, strPtr("Member of Detective Council"), first.AffData[0].Value)
		assert.Equal(t, record.AffData{
			AffNum: strPtr("1"),
			Type:   strPtr("job"),
			Code:   strPtr("007"),
			Value:  strPtr("Chief Inspector"),
		}, first.AffData[1])
		assert.Equal(t, strPtr("42"), first.AffData[2].Value)
		assert.Equal(t, strPtr("Regular Continuing"), first.AffData[4].Value)
	})

	t.Run("place", func(t *testing.T) {
		require.Len(t, first.Places, 1)
		place := first.Places[0]
		assert.Equal(t, strPtr("1"), place.AffNum)
		assert.Equal(t, strPtr("office"), place.Type)
		assert.Nil(t, place.QBFR)

		require.Len(t, place.Addresses, 1)
		address := place.Addresses[0]
		assert.Equal(t, strPtr("office"), address.Type)
		assert.Equal(t, strPtr("world"), address.Visibility)
		assert.Equal(t, strPtr("Metro City"), address.City)
		assert.Equal(t, strPtr("California"), address.State)
		assert.Equal(t, strPtr("CA"), address.StateCode)
		assert.Equal(t, strPtr("90210-1234"), address.PostalCode)
		assert.Equal(t, strPtr("United States"), address.Country)
		assert.Equal(t, strPtr("US"), address.CountryAlpha2)
		assert.Equal(t, strPtr("USA"), address.CountryAlpha3)
		assert.Equal(t, strPtr("840"), address.CountryNumeric)
		assert.True(t, address.Line.IsMulti())
		assert.Equal(t, []string{
			"Department of Crime Detection",
			"Mystery Building, 123 Sherlock Street, Room 221B",
			"Gadget Lab, MC: 0007",
		}, address.Line.Lines)

		require.Len(t, place.Telephones, 3)
		office := place.Telephones[0]
		assert.Equal(t, strPtr("office"), office.Type)
		assert.Equal(t, strPtr("world"), office.Visibility)
		assert.Equal(t, strPtr("1"), office.ICC)
		assert.Equal(t, strPtr("555"), office.Area)
		assert.Equal(t, strPtr("123-0007"), office.Number)
		assert.Equal(t, strPtr("officefax"), place.Telephones[1].Type)
		assert.Equal(t, strPtr("123-0009"), place.Telephones[1].Number)
		assert.Equal(t, strPtr("123-0008"), place.Telephones[2].Number)
	})
}

func TestDocument_Filters(t *testing.T) {
	doc := loadSample(t)

	faculty := doc.FacultyAffiliations()
	assert.Len(t, faculty, 2)
	for _, aff := range faculty {
		assert.True(t, aff.TypeContains("faculty"))
	}

	students := doc.StudentAffiliations()
	assert.Len(t, students, 2)
	for _, aff := range students {
		assert.True(t, aff.TypeContains("student"))
	}

	active := doc.ActiveAffiliations()
	require.Len(t, active, 1)
	assert.Equal(t, strPtr("faculty"), active[0].Type)

	primary := doc.PrimaryAffiliation()
	require.NotNil(t, primary)
	assert.Equal(t, strPtr("1"), primary.AffNum)
	assert.Equal(t, strPtr("Faculty"), primary.Name)
}

func TestDocument_FiltersKeepUntypedAffiliationsActive(t *testing.T) {
	doc := New(`<Person><affiliation affnum="1"/><affiliation type="staff,nonactive"/></Person>`)

	assert.Empty(t, doc.FacultyAffiliations())
	assert.Empty(t, doc.StudentAffiliations())
	assert.Len(t, doc.ActiveAffiliations(), 1)
}

func TestDocument_OrgIDs(t *testing.T) {
	doc := loadSample(t)

	assert.Equal(t, []string{"CRIME", "TECH", "SAFE"}, doc.OrgIDs())
	assert.Empty(t, New(`<Person><organization>No id</organization></Person>`).OrgIDs())
}

func TestDocument_PrimaryOrgCode(t *testing.T) {
	testCases := []struct {
		name string
		xml  string
		want *string
	}{
		{
			name: "nested organization",
			xml:  `<Person><affiliation affnum="2"><department><organization adminid="OTHER"/></department></affiliation><affiliation affnum="1"><department><organization adminid="MAIN"/></department></affiliation></Person>`,
			want: strPtr("MAIN"),
		},
		{
			name: "no primary affiliation",
			xml:  `<Person><affiliation affnum="2"><department><organization adminid="NOMAIN"/></department></affiliation></Person>`,
			want: nil,
		},
		{
			name: "primary without organization",
			xml:  `<Person><affiliation affnum="1"><department>Dept</department></affiliation></Person>`,
			want: nil,
		},
		{
			name: "organization without adminid",
			xml:  `<Person><affiliation affnum="1"><department><organization>Dept</organization></department></affiliation></Person>`,
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, New(tc.xml).PrimaryOrgCode())
		})
	}
}

// The path query and the object graph must agree on the primary org code.
func TestDocument_PrimaryOrgCodeMatchesObjectGraph(t *testing.T) {
	fixtures := []string{
		"testdata/affiliations_sample.xml",
		"../person/testdata/person_sample.xml",
	}

	for _, fixture := range fixtures {
		t.Run(fixture, func(t *testing.T) {
			raw, err := os.ReadFile(fixture)
			require.NoError(t, err)

			doc := New(string(raw))
			primary := doc.PrimaryAffiliation()
			require.NotNil(t, primary)
			require.NotNil(t, primary.Department)
			require.NotNil(t, primary.Department.Organization)

			fromGraph := primary.Department.Organization.AdminID
			require.NotNil(t, fromGraph)
			assert.Equal(t, fromGraph, doc.PrimaryOrgCode())
			assert.Equal(t, fromGraph, person.New(string(raw)).PrimaryOrgCode())
		})
	}
}

func TestDocument_MalformedXML(t *testing.T) {
	var doc *Document
	require.NotPanics(t, func() { doc = New(`<Person><affiliation affnum="1" type="faculty">`) })

	assert.Nil(t, doc.SunetID())
	assert.Nil(t, doc.PrimaryOrgCode())
	assert.Empty(t, doc.OrgIDs())
}

func TestDocument_Summary(t *testing.T) {
	summary := loadSample(t).Summary()

	assert.Equal(t, strPtr("igadget"), summary.SunetID)
	assert.Equal(t, strPtr("CRIME"), summary.PrimaryOrgCode)
	assert.Equal(t, 2, summary.Faculty)
	assert.Equal(t, 2, summary.Student)
	assert.Equal(t, 4, summary.Total)
	require.Len(t, summary.Active, 1)

	encoded, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"org_ids":["CRIME","TECH","SAFE"]`)
	assert.Contains(t, string(encoded), `"line":["Department of Crime Detection",`)
}
