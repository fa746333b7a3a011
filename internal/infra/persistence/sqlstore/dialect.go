package sqlstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hbnb/pkg/domain"
)

// Dialect captures what differs between the supported SQL engines.
type Dialect struct {
	// Name is used in logs and error messages.
	Name string
	// DDL is the schema script applied on every reload.
	DDL string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// EncodeTime converts a timestamp into the driver value stored in the
	// created_at and updated_at columns.
	EncodeTime func(time.Time) any
}

// QuestionPlaceholder renders "?" parameters.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$n" parameters.
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// TextTime stores timestamps as ISO-8601 text.
func TextTime(t time.Time) any { return domain.FormatTime(t) }

// NativeTime stores timestamps as driver time values in UTC.
func NativeTime(t time.Time) any { return t.UTC() }

var tables = map[domain.Class]string{
	domain.ClassBaseModel: "base_models",
	domain.ClassUser:      "users",
	domain.ClassState:     "states",
	domain.ClassCity:      "cities",
	domain.ClassAmenity:   "amenities",
	domain.ClassPlace:     "places",
	domain.ClassReview:    "reviews",
}

// Table returns the table holding instances of class.
func Table(class domain.Class) string { return tables[class] }

const extraColumn = "extra"

// columns lists the columns of the class table in DDL order.
func columns(class domain.Class) []string {
	cols := []string{domain.KeyID, domain.KeyCreatedAt, domain.KeyUpdatedAt}
	for _, f := range class.Schema() {
		cols = append(cols, f.Name)
	}
	return append(cols, extraColumn)
}

func (d Dialect) upsertSQL(class domain.Class) string {
	cols := columns(class)
	marks := make([]string, len(cols))
	sets := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		marks[i] = d.Placeholder(i + 1)
		if col != domain.KeyID {
			sets = append(sets, fmt.Sprintf("%s=excluded.%s", col, col))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		Table(class), strings.Join(cols, ", "), strings.Join(marks, ", "), strings.Join(sets, ", "))
}

func (d Dialect) deleteSQL(class domain.Class) string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", Table(class), d.Placeholder(1))
}

func selectSQL(class domain.Class) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at, id", strings.Join(columns(class), ", "), Table(class))
}

// encodeRow flattens e into column order. Schema attributes whose kind does
// not match the column, and attributes outside the schema, go to extra.
func (d Dialect) encodeRow(e *domain.Entity) ([]any, error) {
	schema := e.Class.Schema()
	// The table carries the class and the identity columns are typed.
	fields := e.ToMap()
	for _, k := range []string{domain.KeyClass, domain.KeyID, domain.KeyCreatedAt, domain.KeyUpdatedAt} {
		delete(fields, k)
	}
	args := make([]any, 0, len(schema)+4)
	args = append(args, e.ID, d.EncodeTime(e.CreatedAt), d.EncodeTime(e.UpdatedAt))
	for _, f := range schema {
		v, ok := fields[f.Name]
		switch {
		case !ok:
			args = append(args, nil)
		case v.Kind() != f.Kind:
			args = append(args, nil)
		default:
			delete(fields, f.Name)
			args = append(args, nativeValue(v))
		}
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode extra for %s: %w", e.Key(), err)
	}
	return append(args, string(payload)), nil
}

func nativeValue(v domain.Value) any {
	if s, ok := v.Str(); ok {
		return s
	}
	if i, ok := v.Int(); ok {
		return i
	}
	if f, ok := v.Float(); ok {
		return f
	}
	return nil
}

// decodeRow rebuilds an entity from values scanned in column order.
func decodeRow(class domain.Class, raw []any) (*domain.Entity, error) {
	cols := columns(class)
	if len(raw) != len(cols) {
		return nil, fmt.Errorf("%s: expected %d columns, got %d", Table(class), len(cols), len(raw))
	}
	m := make(map[string]domain.Value, len(cols))
	id, err := textValue(raw[0])
	if err != nil {
		return nil, fmt.Errorf("%s id: %w", Table(class), err)
	}
	m[domain.KeyID] = domain.StringValue(id)
	for i, key := range []string{domain.KeyCreatedAt, domain.KeyUpdatedAt} {
		t, err := timeValue(raw[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s.%s %s: %w", class, id, key, err)
		}
		m[key] = domain.StringValue(domain.FormatTime(t))
	}
	extra, err := textValue(raw[len(raw)-1])
	if err != nil && raw[len(raw)-1] != nil {
		return nil, fmt.Errorf("%s.%s extra: %w", class, id, err)
	}
	if strings.TrimSpace(extra) != "" {
		var attrs map[string]domain.Value
		if err := json.Unmarshal([]byte(extra), &attrs); err != nil {
			return nil, fmt.Errorf("%s.%s extra: %w", class, id, err)
		}
		for name, v := range attrs {
			m[name] = v
		}
	}
	for i, f := range class.Schema() {
		v, err := columnValue(raw[i+3], f.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s.%s %s: %w", class, id, f.Name, err)
		}
		if !v.IsZero() {
			m[f.Name] = v
		}
	}
	return domain.EntityFromMap(class, m)
}

func textValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return "", fmt.Errorf("unexpected %T", v)
	}
}

func timeValue(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Truncate(time.Microsecond), nil
	case string:
		return domain.ParseTime(x)
	case []byte:
		return domain.ParseTime(string(x))
	default:
		return time.Time{}, fmt.Errorf("unexpected %T", v)
	}
}

func columnValue(v any, kind domain.Kind) (domain.Value, error) {
	var out domain.Value
	switch x := v.(type) {
	case nil:
		return domain.Value{}, nil
	case string:
		out = domain.StringValue(x)
	case []byte:
		out = domain.StringValue(string(x))
	case int64:
		out = domain.IntValue(x)
	case int32:
		out = domain.IntValue(int64(x))
	case int:
		out = domain.IntValue(int64(x))
	case float64:
		out = domain.FloatValue(x)
	case float32:
		out = domain.FloatValue(float64(x))
	default:
		return domain.Value{}, fmt.Errorf("unexpected %T", v)
	}
	if coerced, ok := out.Coerce(kind); ok {
		return coerced, nil
	}
	return out, nil
}
