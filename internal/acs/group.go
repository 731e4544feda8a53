package acs

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/acsmap/internal/choropleth"
)

// Group is the metadata for one ACS table.
type Group struct {
	TableID  string
	Title    string
	Universe string
	Columns  []choropleth.Column
}

// parseGroup reads a groups/{ID}.json document. Only estimate variables
// ({ID}_NNNE) become columns; margins of error and annotations are skipped.
func parseGroup(tableID string, data []byte) (*Group, error) {
	if !gjson.ValidBytes(data) {
		return nil, eris.Errorf("acs: group %s: invalid JSON", tableID)
	}
	vars := gjson.GetBytes(data, "variables")
	if !vars.IsObject() {
		return nil, eris.Errorf("acs: group %s: missing variables", tableID)
	}

	estimate := regexp.MustCompile(`^` + regexp.QuoteMeta(tableID) + `_[0-9]{3}E$`)
	g := &Group{TableID: tableID}

	vars.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if !estimate.MatchString(name) {
			return true
		}
		g.Columns = append(g.Columns, choropleth.Column{
			Name:  name,
			Label: cleanLabel(value.Get("label").String()),
		})
		if g.Title == "" {
			g.Title = titleCase(value.Get("concept").String())
		}
		if g.Universe == "" {
			g.Universe = strings.TrimSpace(value.Get("universe").String())
		}
		return true
	})

	sort.Slice(g.Columns, func(i, j int) bool {
		return g.Columns[i].Name < g.Columns[j].Name
	})
	return g, nil
}

// cleanLabel turns "Estimate!!Total:!!Male:" into "Total > Male".
func cleanLabel(label string) string {
	parts := strings.Split(label, "!!")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSuffix(strings.TrimSpace(p), ":")
		if p == "" || p == "Estimate" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, " > ")
}

// titleCase title-cases the shouting concept names of older vintages and
// leaves already mixed-case concepts alone. A cases.Caser keeps state between
// calls, so each call gets its own.
func titleCase(concept string) string {
	concept = strings.TrimSpace(concept)
	if concept != strings.ToUpper(concept) {
		return concept
	}
	return cases.Title(language.AmericanEnglish).String(strings.ToLower(concept))
}
