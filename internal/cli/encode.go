package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// EncodingType selects how reports are written.
type EncodingType string

// Report encodings. Text is the settings file's default and renders as a table.
const (
	EncodingText  EncodingType = "text"
	EncodingTable EncodingType = "table"
	EncodingJSON  EncodingType = "json"
	EncodingYAML  EncodingType = "yaml"
)

func encodeResult(output EncodingType, res *model.ResolutionResult) ([]byte, error) {
	var data []byte
	var err error
	switch output {
	case EncodingJSON:
		data, err = json.MarshalIndent(res, "", "  ")
		data = append(data, '\n')
	case EncodingYAML:
		data, err = yaml.Marshal(res)
	case EncodingTable, EncodingText, "":
		data = encodeResultAsTable(res)
	default:
		err = fmt.Errorf("unknown output format: %q", output)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding resolution result as %q failed: %w", output, err)
	}
	return data, nil
}

func encodeResultAsTable(res *model.ResolutionResult) []byte {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Coordinate", "Depth", "Repository", "Path"})
	for _, a := range res.Artifacts {
		t.AppendRow(table.Row{a.Coordinate.ShortString(), strconv.Itoa(a.Depth), a.Repository, a.Path})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.Bytes()
}

// encodeEntries renders key/value pairs with an optional third column.
func encodeEntries(output EncodingType, header table.Row, rows [][]string) ([]byte, error) {
	switch output {
	case EncodingJSON, EncodingYAML:
		records := make([]map[string]string, 0, len(rows))
		for _, r := range rows {
			rec := make(map[string]string, len(r))
			for i, v := range r {
				rec[fmt.Sprint(header[i])] = v
			}
			records = append(records, rec)
		}
		if output == EncodingYAML {
			return yaml.Marshal(records)
		}
		data, err := json.MarshalIndent(records, "", "  ")
		return append(data, '\n'), err
	case EncodingTable, EncodingText, "":
		var buf bytes.Buffer
		t := table.NewWriter()
		t.SetOutputMirror(&buf)
		t.AppendHeader(header)
		for _, r := range rows {
			row := make(table.Row, len(r))
			for i, v := range r {
				row[i] = v
			}
			t.AppendRow(row)
		}
		style := table.StyleLight
		style.Options.DrawBorder = false
		t.SetStyle(style)
		t.Render()
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", output)
	}
}
