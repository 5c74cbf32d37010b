// Package export writes control results as JSON documents or flat tables.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/kilianp07/gridbalance/core/model"
)

// WriteJSON writes the result document to w, indented.
func WriteJSON(w io.Writer, res model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteCSV writes the result rows to w with the wire column names as
// headers.
func WriteCSV(w io.Writer, res model.Result) error {
	header, records, err := Table(res)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// Table flattens the result rows. Columns follow the row encoding order;
// a column missing from a row is left empty.
func Table(res model.Result) ([]string, [][]string, error) {
	var header []string
	cells := make([]map[string]string, 0, len(res.Rows))
	for i, r := range res.Rows {
		keys, vals, err := flatten(r)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		header = lo.Union(header, keys)
		cells = append(cells, vals)
	}
	records := lo.Map(cells, func(c map[string]string, _ int) []string {
		return lo.Map(header, func(k string, _ int) string { return c[k] })
	})
	return header, records, nil
}

// flatten returns the keys of the encoded row in order and their values
// formatted as text.
func flatten(r model.ResultRow) ([]string, map[string]string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	var keys []string
	vals := map[string]string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		vals[key] = format(v)
	}
	return keys, vals, nil
}

func format(v any) string {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t.Format(time.RFC3339)
		}
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
