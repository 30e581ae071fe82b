package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/janoszen/dotrollcli/internal/domain"
	"github.com/tidwall/gjson"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type outputFormat int

const (
	formatTable outputFormat = iota
	formatJSON
	formatNDJSON
	formatPlain
	formatYAML
)

func resolveFormat(flagVal string, stdout io.Writer) (outputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(flagVal)) {
	case "table":
		return formatTable, nil
	case "json":
		return formatJSON, nil
	case "ndjson", "jsonl":
		return formatNDJSON, nil
	case "plain":
		return formatPlain, nil
	case "yaml", "yml":
		return formatYAML, nil
	case "auto", "":
	default:
		return formatTable, fmt.Errorf("invalid format %q (use auto|table|json|ndjson|plain|yaml)", flagVal)
	}

	if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return formatTable, nil
	}
	return formatJSON, nil
}

// layout names the synthetic columns used when the payload's shape does not
// carry its own column names.
type layout struct {
	Key   string // column holding object keys
	Value string // column holding scalar values
}

func writeResult(w io.Writer, format outputFormat, lay layout, payload any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case formatNDJSON:
		enc := json.NewEncoder(w)
		if items, ok := payload.([]any); ok {
			for _, it := range items {
				if err := enc.Encode(it); err != nil {
					return err
				}
			}
			return nil
		}
		return enc.Encode(payload)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return err
		}
		return enc.Close()
	}

	header, rows, err := tabulate(lay, payload)
	if err != nil {
		return err
	}

	if format == formatPlain {
		for _, r := range rows {
			if _, err := fmt.Fprintln(w, strings.Join(r, "\t")); err != nil {
				return err
			}
		}
		return nil
	}

	if len(header) == 0 {
		return nil
	}
	tw := domain.NewTabWriter(w)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// tabulate flattens a decoded JSON payload into a header and rows:
//
//	[{...}, {...}]    one row per element, columns from the element keys
//	[a, b]            one Value column
//	{k: {...}, ...}   one row per key, Key column then the nested keys
//	{k: v, ...}       Key/Value rows
//	scalar            a single Value cell
func tabulate(lay layout, payload any) ([]string, [][]string, error) {
	if payload == nil {
		return nil, nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	doc := gjson.ParseBytes(b)

	switch {
	case doc.IsArray():
		items := doc.Array()
		if allObjects(items) && len(items) > 0 {
			cols := unionKeys(items)
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, objectRow(it, cols))
			}
			return upper(cols), rows, nil
		}
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			rows = append(rows, []string{cell(it)})
		}
		return []string{lay.Value}, rows, nil

	case doc.IsObject():
		var keys []string
		var values []gjson.Result
		doc.ForEach(func(k, v gjson.Result) bool {
			keys = append(keys, k.String())
			values = append(values, v)
			return true
		})
		if allObjects(values) && len(values) > 0 {
			cols := unionKeys(values)
			rows := make([][]string, 0, len(values))
			for i, v := range values {
				rows = append(rows, append([]string{keys[i]}, objectRow(v, cols)...))
			}
			return append([]string{lay.Key}, upper(cols)...), rows, nil
		}
		rows := make([][]string, 0, len(values))
		for i, v := range values {
			rows = append(rows, []string{keys[i], cell(v)})
		}
		return []string{lay.Key, lay.Value}, rows, nil

	default:
		return []string{lay.Value}, [][]string{{cell(doc)}}, nil
	}
}

func allObjects(rs []gjson.Result) bool {
	for _, r := range rs {
		if !r.IsObject() {
			return false
		}
	}
	return true
}

// unionKeys returns every key that appears in objs, in first-seen order.
func unionKeys(objs []gjson.Result) []string {
	var cols []string
	seen := map[string]struct{}{}
	for _, o := range objs {
		o.ForEach(func(k, _ gjson.Result) bool {
			name := k.String()
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				cols = append(cols, name)
			}
			return true
		})
	}
	return cols
}

// objectRow looks fields up by exact key; keys such as "co.hu" would be
// read as paths by gjson.Get.
func objectRow(obj gjson.Result, cols []string) []string {
	fields := map[string]gjson.Result{}
	obj.ForEach(func(k, v gjson.Result) bool {
		fields[k.String()] = v
		return true
	})
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = cell(fields[c])
	}
	return row
}

func cell(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return r.String()
	case gjson.Number:
		return r.Raw
	case gjson.True, gjson.False:
		return r.String()
	default:
		return r.Raw
	}
}

func upper(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToUpper(c)
	}
	return out
}
