// Package output renders analysis results in the formats the CLI exposes.
// All formatters accept arbitrary JSON-marshalable data; the flat formats
// (csv, table) flatten nested structures into dotted key paths.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Formatter renders a result structure into a byte representation.
type Formatter interface {
	Format(data any, pretty bool) ([]byte, error)
}

// NewFormatter returns the formatter for a format name. Unknown names fall
// back to JSON.
func NewFormatter(format string) Formatter {
	switch format {
	case "yaml":
		return &YAMLFormatter{}
	case "csv":
		return &CSVFormatter{}
	case "table":
		return &TableFormatter{}
	case "json":
		return &JSONFormatter{}
	default:
		return &JSONFormatter{}
	}
}

// JSONFormatter renders data as JSON.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(data any, pretty bool) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if pretty {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(out, '\n'), nil
}

// YAMLFormatter renders data as YAML.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(data any, _ bool) ([]byte, error) {
	out, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return out, nil
}

// CSVFormatter renders flattened key/value pairs as CSV rows.
type CSVFormatter struct{}

// Format implements Formatter.
func (f *CSVFormatter) Format(data any, _ bool) ([]byte, error) {
	pairs, err := flatten(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"key", "value"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, p := range pairs {
		if err := w.Write([]string{p.key, p.value}); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// TableFormatter renders flattened key/value pairs as an aligned
// two-column table.
type TableFormatter struct{}

// Format implements Formatter.
func (f *TableFormatter) Format(data any, _ bool) ([]byte, error) {
	pairs, err := flatten(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	for _, p := range pairs {
		fmt.Fprintf(w, "%s\t%s\n", p.key, p.value)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush table: %w", err)
	}
	return buf.Bytes(), nil
}

type kvPair struct {
	key   string
	value string
}

// flatten reduces data to sorted dotted-path/value pairs via a JSON
// round trip, so structs, maps and slices all take the same shape.
func flatten(data any) ([]kvPair, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}

	pairs := []kvPair{}
	walkTree("", tree, &pairs)
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	return pairs, nil
}

func walkTree(prefix string, node any, pairs *[]kvPair) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			walkTree(path, child, pairs)
		}
	case []any:
		for i, child := range v {
			path := prefix + "[" + strconv.Itoa(i) + "]"
			walkTree(path, child, pairs)
		}
	default:
		*pairs = append(*pairs, kvPair{key: prefix, value: scalarString(v)})
	}
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
