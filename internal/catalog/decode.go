package catalog

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeGroups reads a JSON object mapping group ids to ordered metric
// lists. Groups keep the order they appear in the document. titles maps
// group ids to display titles; ids without a title display as themselves.
func DecodeGroups(r io.Reader, titles map[string]string) ([]Group, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.Errorf("catalog: expected '{', got %v", tok)
	}

	var groups []Group
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read group id")
		}
		id, ok := tok.(string)
		if !ok {
			return nil, eris.Errorf("catalog: expected group id, got %v", tok)
		}

		var metrics []string
		if err := dec.Decode(&metrics); err != nil {
			return nil, eris.Wrapf(err, "catalog: decode metrics of group %q", id)
		}

		title := titles[id]
		if title == "" {
			title = id
		}
		groups = append(groups, Group{ID: id, Title: title, Metrics: metrics})
	}

	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "catalog: read closing token")
	}

	return groups, nil
}
