package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sul-dlss/mais-person-client/affiliations"
	"github.com/sul-dlss/mais-person-client/record"
)

func newAffiliationsCmd(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "affiliations <sunetid>",
		Short: "Show a person's affiliation history",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return checkFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sunetid := args[0]

			if format == formatXML {
				body, found, err := app.client.FetchUserAffiliationsXML(ctx, sunetid)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("affiliations for %s: %w", sunetid, ErrNotFound)
				}
				_, err = io.WriteString(app.Out, body)
				return err
			}

			doc, err := app.client.FetchUserAffiliations(ctx, sunetid)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("affiliations for %s: %w", sunetid, ErrNotFound)
			}

			switch format {
			case formatJSON:
				return writeJSON(app.Out, doc.Summary())
			case formatDump:
				writeDump(app.Out, doc.Summary())
				return nil
			}
			return writeAffiliationsSummary(app.Out, doc)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatSummary, "output format: summary, json, xml or dump")
	return cmd
}

func writeAffiliationsSummary(w io.Writer, doc *affiliations.Document) error {
	s := doc.Summary()

	fields := []field{
		{"SUNet ID", s.SunetID},
		{"Name", s.Name},
		{"Relationship", s.Relationship},
		{"Primary org code", s.PrimaryOrgCode},
		{"Org IDs", str(strings.Join(s.OrgIDs, ", "))},
		{"Affiliations", str(strconv.Itoa(s.Total))},
		{"Faculty", str(strconv.Itoa(s.Faculty))},
		{"Student", str(strconv.Itoa(s.Student))},
	}
	for _, aff := range doc.Affiliations() {
		desc := record.Value(aff.Type)
		if aff.Department != nil && aff.Department.Organization != nil {
			org := aff.Department.Organization
			desc += " in " + record.Value(org.Name)
			if org.AdminID != nil {
				desc += " (" + *org.AdminID + ")"
			}
		}
		if aff.Effective != nil {
			desc += " since " + *aff.Effective
		}
		fields = append(fields, field{"Affiliation " + record.Value(aff.AffNum), str(desc)})
	}
	return writeFields(w, fields)
}
