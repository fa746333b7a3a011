package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the ISO-8601 layout used for serialized timestamps.
const TimeLayout = "2006-01-02T15:04:05.000000"

// Reserved serialized keys. They are managed by the entity itself and can
// never be assigned as attributes.
const (
	KeyClass     = "__class__"
	KeyID        = "id"
	KeyCreatedAt = "created_at"
	KeyUpdatedAt = "updated_at"
)

// ErrInvalidEntity reports an entity without a valid id or class.
var ErrInvalidEntity = errors.New("invalid entity")

// Entity is a managed object instance. Entities are value-like: storages hand
// out clones, and a mutation becomes visible only once the entity is
// registered again through Storage.New.
type Entity struct {
	Class     Class
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	attrs     map[string]Value
}

// Now returns the current UTC time truncated to the precision timestamps are
// serialized with, so that a save/reload cycle reproduces them exactly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewEntity constructs a fresh instance of class with a generated id and both
// timestamps set to now.
func NewEntity(class Class, now time.Time) *Entity {
	now = normalizeTime(now)
	return &Entity{
		Class:     class,
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		attrs:     make(map[string]Value),
	}
}

// EntityFromMap reconstructs an entity from its serialized mapping, reusing
// the supplied id and timestamps verbatim. A "__class__" entry is ignored;
// the class comes from the caller (the storage key).
func EntityFromMap(class Class, m map[string]Value) (*Entity, error) {
	if !class.Valid() {
		return nil, fmt.Errorf("%w: unknown class %q", ErrInvalidEntity, class)
	}
	id, ok := m[KeyID].Str()
	if !ok || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: %s without id", ErrInvalidEntity, class)
	}
	created, err := timeField(m, KeyCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", class, id, err)
	}
	updated, err := timeField(m, KeyUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", class, id, err)
	}
	e := &Entity{Class: class, ID: id, CreatedAt: created, UpdatedAt: updated, attrs: make(map[string]Value, len(m))}
	for name, v := range m {
		if IsReserved(name) || v.IsZero() {
			continue
		}
		e.attrs[name] = v
	}
	return e, nil
}

func timeField(m map[string]Value, key string) (time.Time, error) {
	raw, ok := m[key].Str()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: missing %s", ErrInvalidEntity, key)
	}
	t, err := ParseTime(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

// ParseTime parses a serialized timestamp. Besides TimeLayout it accepts
// RFC 3339 input.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return normalizeTime(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatTime renders t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// IsReserved reports whether name is managed by the entity itself.
func IsReserved(name string) bool {
	switch name {
	case KeyClass, KeyID, KeyCreatedAt, KeyUpdatedAt:
		return true
	}
	return false
}

// Key returns the storage key "<Class>.<id>".
func (e *Entity) Key() string {
	return Key(e.Class, e.ID)
}

// Key builds a storage key.
func Key(class Class, id string) string {
	return string(class) + "." + id
}

// SplitKey parses a storage key into its class and id.
func SplitKey(key string) (Class, string, error) {
	name, id, ok := strings.Cut(key, ".")
	if !ok || id == "" {
		return "", "", fmt.Errorf("malformed key %q", key)
	}
	class, ok := ParseClass(name)
	if !ok {
		return "", "", fmt.Errorf("key %q: unknown class %q", key, name)
	}
	return class, id, nil
}

// Validate checks the identity invariants.
func (e *Entity) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil", ErrInvalidEntity)
	}
	if !e.Class.Valid() {
		return fmt.Errorf("%w: unknown class %q", ErrInvalidEntity, e.Class)
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidEntity, e.Class)
	}
	return nil
}

// Set assigns an attribute. Declared attributes are coerced to their schema
// kind when the conversion is lossless; otherwise the value is kept as given.
// Reserved names are rejected.
func (e *Entity) Set(name string, v Value) bool {
	if name == "" || IsReserved(name) || v.IsZero() {
		return false
	}
	if f, ok := e.Class.Field(name); ok {
		if coerced, ok := v.Coerce(f.Kind); ok {
			v = coerced
		}
	}
	if e.attrs == nil {
		e.attrs = make(map[string]Value)
	}
	e.attrs[name] = v
	return true
}

// Get returns an attribute value.
func (e *Entity) Get(name string) (Value, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Attributes returns the names of all set attributes in sorted order.
func (e *Entity) Attributes() []string {
	names := make([]string, 0, len(e.attrs))
	for name := range e.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Touch refreshes the update timestamp.
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = normalizeTime(now)
}

// Clone returns a deep copy.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	cp := *e
	cp.attrs = make(map[string]Value, len(e.attrs))
	for k, v := range e.attrs {
		cp.attrs[k] = v
	}
	return &cp
}

// Equal reports whether both entities carry the same identity, timestamps and
// attributes.
func (e *Entity) Equal(o *Entity) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Class != o.Class || e.ID != o.ID || !e.CreatedAt.Equal(o.CreatedAt) || !e.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if len(e.attrs) != len(o.attrs) {
		return false
	}
	for k, v := range e.attrs {
		if ov, ok := o.attrs[k]; !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Document returns the durable mapping of the entity: id, ISO timestamps and
// attributes. The class is not included; it is part of the storage key.
func (e *Entity) Document() map[string]Value {
	m := make(map[string]Value, len(e.attrs)+3)
	for k, v := range e.attrs {
		m[k] = v
	}
	m[KeyID] = StringValue(e.ID)
	m[KeyCreatedAt] = StringValue(FormatTime(e.CreatedAt))
	m[KeyUpdatedAt] = StringValue(FormatTime(e.UpdatedAt))
	return m
}

// ToMap returns Document plus the "__class__" entry.
func (e *Entity) ToMap() map[string]Value {
	m := e.Document()
	m[KeyClass] = StringValue(string(e.Class))
	return m
}

// Save refreshes the update timestamp and hands the entity to the storage:
// it is registered through New and then flushed through Save.
func (e *Entity) Save(ctx context.Context, s Storage, now time.Time) error {
	e.Touch(now)
	if err := s.New(e); err != nil {
		return err
	}
	return s.Save(ctx)
}

// String renders "[Class] (id) {...}" with identity fields first followed by
// attributes in name order.
func (e *Entity) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] (%s) {", e.Class, e.ID)
	fmt.Fprintf(&b, "'%s': %s, ", KeyID, quoteLiteral(e.ID))
	fmt.Fprintf(&b, "'%s': %s, ", KeyCreatedAt, quoteLiteral(FormatTime(e.CreatedAt)))
	fmt.Fprintf(&b, "'%s': %s", KeyUpdatedAt, quoteLiteral(FormatTime(e.UpdatedAt)))
	for _, name := range e.Attributes() {
		fmt.Fprintf(&b, ", %s: %s", quoteLiteral(name), e.attrs[name].Repr())
	}
	b.WriteByte('}')
	return b.String()
}
