package choropleth

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
)

// Popup is the per-region detail listing: every metric of every group.
type Popup struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section lists the metrics of one group under its display title.
type Section struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Entry is one formatted metric.
type Entry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

var popupTmpl = template.Must(template.New("popup").Parse(
	`<div class="popup"><h3>{{.Title}}</h3>` +
		`{{range .Sections}}<div class="group">{{.Title}}</div><table>` +
		`{{range .Entries}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>{{end}}` +
		`</table>{{end}}</div>`))

var popupPolicy = newPopupPolicy()

func newPopupPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("div", "table")
	return policy
}

// HTML renders the popup as sanitised markup.
func (p *Popup) HTML() (string, error) {
	var buf bytes.Buffer
	if err := popupTmpl.Execute(&buf, p); err != nil {
		return "", eris.Wrap(err, "choropleth: render popup")
	}
	return popupPolicy.Sanitize(buf.String()), nil
}
