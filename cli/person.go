package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sul-dlss/mais-person-client/person"
	"github.com/sul-dlss/mais-person-client/record"
)

func newPersonCmd(app *App) *cobra.Command {
	var (
		format string
		tags   []string
	)

	cmd := &cobra.Command{
		Use:   "person <sunetid>",
		Short: "Show a person's profile",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return checkFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sunetid := args[0]

			if format == formatXML {
				body, found, err := app.client.FetchUserXML(ctx, sunetid, tags...)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("person %s: %w", sunetid, ErrNotFound)
				}
				_, err = io.WriteString(app.Out, body)
				return err
			}

			doc, err := app.client.FetchUser(ctx, sunetid, tags...)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("person %s: %w", sunetid, ErrNotFound)
			}

			switch format {
			case formatJSON:
				return writeJSON(app.Out, doc.Summary())
			case formatDump:
				writeDump(app.Out, doc.Summary())
				return nil
			}
			return writePersonSummary(app.Out, doc)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatSummary, "output format: summary, json, xml or dump")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "sections to request (default all)")
	return cmd
}

func writePersonSummary(w io.Writer, doc *person.Document) error {
	s := doc.Summary()

	fields := []field{
		{"SUNet ID", s.SunetID},
		{"Name", s.DisplayName},
		{"Registered name", s.Name},
		{"Relationship", s.Relationship},
		{"Title", s.JobTitle},
		{"Email", s.PrimaryEmail},
		{"Homepage", s.Homepage},
		{"ORCID", s.ORCID},
		{"Primary role", s.PrimaryRole},
		{"Org code", s.PrimaryOrgCode},
		{"Effective", s.PrimaryEffectiveDate},
		{"End date", s.StanfordEndDate},
	}
	if s.AcademicCouncil {
		fields = append(fields, field{"Academic council", str("member")})
	}
	if s.WorkPhone != nil {
		fields = append(fields, field{"Work phone", s.WorkPhone.FullNumber})
	}
	if s.WorkAddress != nil {
		fields = append(fields, field{"Work address", addressText(*s.WorkAddress)})
	}
	if len(s.Privgroups) > 0 {
		fields = append(fields, field{"Privgroups", str(strings.Join(s.Privgroups, ", "))})
	}
	for _, aff := range s.Affiliations {
		desc := record.Value(aff.Type)
		if aff.Department != nil && aff.Department.Name != nil {
			desc += " in " + *aff.Department.Name
		}
		fields = append(fields, field{"Affiliation " + record.Value(aff.AffNum), str(desc)})
	}
	return writeFields(w, fields)
}

func addressText(a record.Address) *string {
	if a.FullAddress != nil {
		return a.FullAddress
	}
	parts := slices.Clone(a.Line.All())
	for _, p := range []*string{a.City, a.StateCode, a.PostalCode} {
		if p != nil {
			parts = append(parts, *p)
		}
	}
	return str(strings.Join(parts, ", "))
}
