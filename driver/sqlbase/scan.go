package sqlbase

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/metadata"
)

// scanRows reads every row of rows into plan-keyed maps, converting driver
// values to the canonical Go type of each field. rows is closed on return.
func scanRows(d Dialect, plan *ormgraph.Plan, rows *sql.Rows) (out []ormgraph.Row, err error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("sqlbase: closing rows: %w", closeErr)
		}
	}()

	fields := make(map[string]*metadata.Field)
	for _, n := range plan.Nodes {
		for _, f := range n.Columns() {
			fields[n.Key(f.Column)] = f
		}
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlbase: reading result columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, errors.New("sqlbase: query returned no columns")
	}

	dest := make([]any, len(columns))
	raw := make([]any, len(columns))
	for i := range dest {
		dest[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlbase: scanning row %d: %w", len(out), err)
		}
		row := make(ormgraph.Row, len(columns))
		for i, name := range columns {
			f, mapped := fields[name]
			if !mapped {
				continue
			}
			v, err := decodeValue(d, f, raw[i])
			if err != nil {
				return nil, fmt.Errorf("sqlbase: row %d column %s: %w", len(out), name, err)
			}
			row[name] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlbase: iterating rows: %w", err)
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04:05",
}

// decodeValue converts a raw driver value to the type Field.Validate
// produces for f, so assembled instances look like constructed ones.
func decodeValue(d Dialect, f *metadata.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if dec, ok := d.(Decoder); ok {
		if v, handled, err := dec.Decode(f, raw); handled || err != nil {
			return v, err
		}
	}
	if b, ok := raw.([]byte); ok {
		// drivers reuse the buffer between rows
		raw = string(b)
		if f.Kind == metadata.KindUUID && len(b) == 16 {
			return uuid.FromBytes(b)
		}
	}

	kind := f.Kind
	if kind == metadata.KindForeignKey {
		if pk := f.Relation.TargetPK(); pk != nil {
			return decodeValue(d, pk, raw)
		}
		return raw, nil
	}

	switch kind {
	case metadata.KindString, metadata.KindText:
		return fmt.Sprint(raw), nil

	case metadata.KindInteger, metadata.KindBigInteger:
		switch n := raw.(type) {
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		case int:
			return int64(n), nil
		case float64:
			return int64(n), nil
		case string:
			return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		}

	case metadata.KindFloat:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(n), 64)
		}

	case metadata.KindDecimal:
		switch n := raw.(type) {
		case string:
			return strings.TrimSpace(n), nil
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		}

	case metadata.KindBoolean:
		switch b := raw.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case string:
			return strconv.ParseBool(b)
		}

	case metadata.KindDateTime, metadata.KindDate, metadata.KindTime:
		switch t := raw.(type) {
		case time.Time:
			return t, nil
		case string:
			for _, layout := range timeLayouts {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed, nil
				}
			}
		}

	case metadata.KindJSON:
		switch j := raw.(type) {
		case string:
			return json.RawMessage(j), nil
		default:
			encoded, err := json.Marshal(j)
			if err != nil {
				return nil, err
			}
			return json.RawMessage(encoded), nil
		}

	case metadata.KindUUID:
		switch u := raw.(type) {
		case string:
			return uuid.Parse(u)
		case [16]byte:
			return uuid.UUID(u), nil
		}

	default:
		return raw, nil
	}
	return nil, fmt.Errorf("cannot decode %T as %s", raw, kind)
}

// encodeValue converts a bound value to something every database/sql driver
// accepts. Values the default converter rejects (JSON documents held as maps
// or structs) are sent as JSON text.
func encodeValue(v any) any {
	switch x := v.(type) {
	case json.RawMessage:
		return string(x)
	case uuid.UUID:
		return x.String()
	case decimal.Decimal:
		return x.String()
	}
	if _, err := driver.DefaultParameterConverter.ConvertValue(v); err != nil {
		if b, jsonErr := json.Marshal(v); jsonErr == nil {
			return string(b)
		}
	}
	return v
}
