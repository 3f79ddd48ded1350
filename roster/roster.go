// Package roster looks up a list of people concurrently and exports the
// results as rows, optionally to a Google Sheet.
package roster

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sul-dlss/mais-person-client/person"
	"github.com/sul-dlss/mais-person-client/record"
)

const (
	StatusFound    = "found"
	StatusNotFound = "not found"
	StatusError    = "error"
)

// Fetcher is the part of mais.Client the roster needs.
type Fetcher interface {
	FetchUser(ctx context.Context, sunetid string, tags ...string) (*person.Document, error)
}

// Entry is the outcome of one lookup. Person is nil when the person was not
// found or the lookup failed.
type Entry struct {
	SunetID string
	Person  *person.Document
	Err     error
}

// Collect fetches every sunetid with at most concurrency requests in flight.
// Results keep the input order; blank and repeated ids are dropped. A failed
// lookup is recorded on its Entry and does not stop the others.
func Collect(ctx context.Context, f Fetcher, sunetids []string, concurrency int) ([]Entry, error) {
	ids := uniqueIDs(sunetids)
	entries := make([]Entry, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := f.FetchUser(ctx, id)
			entries[i] = Entry{SunetID: id, Person: doc, Err: err}
			if err != nil {
				slog.Warn("Roster lookup failed", "sunetid", id, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func uniqueIDs(sunetids []string) []string {
	seen := make(map[string]bool, len(sunetids))
	var ids []string
	for _, id := range sunetids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Row is one roster line.
type Row struct {
	SunetID      string `json:"sunetid"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	JobTitle     string `json:"job_title"`
	Role         string `json:"role"`
	OrgCode      string `json:"org_code"`
	WorkPhone    string `json:"work_phone"`
	Relationship string `json:"relationship"`
	EndDate      string `json:"end_date"`
	Status       string `json:"status"`
}

// RowFromEntry flattens a lookup result.
func RowFromEntry(e Entry) Row {
	switch {
	case e.Err != nil:
		return Row{SunetID: e.SunetID, Status: StatusError + ": " + e.Err.Error()}
	case e.Person == nil:
		return Row{SunetID: e.SunetID, Status: StatusNotFound}
	}
	return RowFromPerson(e.SunetID, e.Person)
}

// RowFromPerson flattens a person record.
func RowFromPerson(sunetid string, doc *person.Document) Row {
	row := Row{
		SunetID:      sunetid,
		Email:        record.Value(doc.PrimaryEmail()),
		JobTitle:     record.Value(doc.JobTitle()),
		Role:         record.Value(doc.PrimaryRole()),
		OrgCode:      record.Value(doc.PrimaryOrgCode()),
		Relationship: record.Value(doc.Relationship()),
		EndDate:      record.Value(doc.StanfordEndDate()),
		Status:       StatusFound,
	}
	if name := doc.DisplayName(); name != nil && name.FullName != nil {
		row.Name = *name.FullName
	} else if name := doc.RegisteredName(); name != nil {
		row.Name = record.Value(name.FullName)
	}
	if phone := doc.WorkPhone(); phone != nil {
		row.WorkPhone = record.Value(phone.FullNumber)
	}
	return row
}

// Rows converts entries in order.
func Rows(entries []Entry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, RowFromEntry(e))
	}
	return rows
}

// Header is the first row written by FormatRows.
var Header = []string{
	"SUNet ID", "Name", "Email", "Job Title", "Role", "Org Code",
	"Work Phone", "Relationship", "End Date", "Status",
}

// Values returns the row's cells in Header order.
func (r Row) Values() []string {
	return []string{
		r.SunetID, r.Name, r.Email, r.JobTitle, r.Role, r.OrgCode,
		r.WorkPhone, r.Relationship, r.EndDate, r.Status,
	}
}

// FormatRows formats rows for the Sheets API, header first.
func FormatRows(rows []Row) [][]interface{} {
	data := make([][]interface{}, 0, len(rows)+1)
	data = append(data, toCells(Header))
	for _, r := range rows {
		data = append(data, toCells(r.Values()))
	}
	return data
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
