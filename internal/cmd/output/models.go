package output

import (
	"strconv"

	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

const textWidth = 60

// Records tabulates a record collection.
type Records records.Collection

// Table implements Tabular.
func (r Records) Table(wide bool) Data {
	data := Data{
		Headers:         []string{"#", Title("text"), Title("category")},
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft},
	}
	for i, rec := range r {
		text := rec.Text
		if !wide {
			text = Truncate(text, textWidth)
		}
		data.Rows = append(data.Rows, []string{strconv.Itoa(i + 1), text, rec.Category})
	}
	return data
}

// Value implements Tabular.
func (r Records) Value() any { return records.Collection(r) }

// Record tabulates a single record as property rows.
type Record records.Record

// Table implements Tabular.
func (r Record) Table(bool) Data {
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{Title("text"), r.Text},
			{Title("category"), r.Category},
		},
	}
}

// Value implements Tabular.
func (r Record) Value() any { return records.Record(r) }

// Conflicts tabulates outstanding conflicts.
type Conflicts []reconcile.Conflict

// Table implements Tabular.
func (c Conflicts) Table(wide bool) Data {
	data := Data{Headers: []string{Title("text"), Title("local_category"), Title("remote_category")}}
	for _, conflict := range c {
		text := conflict.Text
		if !wide {
			text = Truncate(text, textWidth)
		}
		data.Rows = append(data.Rows, []string{text, conflict.LocalCategory, conflict.RemoteCategory})
	}
	return data
}

// Value implements Tabular.
func (c Conflicts) Value() any { return []reconcile.Conflict(c) }

// Result tabulates the outcome of a pass.
type Result pkgsync.Result

// Table implements Tabular.
func (r Result) Table(bool) Data {
	res := pkgsync.Result(r)
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Sync ID", res.ID},
			{"Policy", res.Policy},
			{"Summary", res.Summary()},
			{"Added", strconv.Itoa(len(res.Added))},
			{"Conflicts", strconv.Itoa(len(res.Conflicts))},
			{"Persisted", strconv.FormatBool(res.Persisted)},
		},
	}
}

// Value implements Tabular.
func (r Result) Value() any { return pkgsync.Result(r) }

// Status tabulates the engine status.
type Status pkgsync.Status

// Table implements Tabular.
func (s Status) Table(bool) Data {
	lastRun := "never"
	if !s.LastRun.IsZero() {
		lastRun = s.LastRun.Format("2006-01-02 15:04:05 MST")
	}
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"State", s.State.String()},
			{"Last Run", lastRun},
			{"Last Error", s.LastError},
			{"Passes", strconv.Itoa(s.Passes)},
			{"Conflicts", strconv.Itoa(s.Conflicts)},
			{"Undo Available", strconv.FormatBool(s.HasBackup)},
			{"Auto Sync", strconv.FormatBool(s.AutoSync)},
		},
	}
}

// Value implements Tabular.
func (s Status) Value() any { return pkgsync.Status(s) }
