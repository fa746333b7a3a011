package domain

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseClassIsExhaustive(t *testing.T) {
	for _, c := range Classes() {
		got, ok := ParseClass(string(c))
		if !ok || got != c {
			t.Fatalf("ParseClass(%q) = %q, %v", c, got, ok)
		}
	}
	for _, name := range []string{"", "user", "Users", "asdfsfsd", "base_model"} {
		if _, ok := ParseClass(name); ok {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestNewEntityAssignsIdentity(t *testing.T) {
	now := time.Date(2026, 10, 16, 8, 30, 0, 123456789, time.UTC)
	a := NewEntity(ClassUser, now)
	b := NewEntity(ClassUser, now)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", a.ID, b.ID)
	}
	if !a.CreatedAt.Equal(a.UpdatedAt) {
		t.Fatalf("expected equal timestamps on creation")
	}
	if a.CreatedAt.Nanosecond()%1000 != 0 {
		t.Fatalf("expected microsecond precision, got %v", a.CreatedAt)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestEntityFromMapReusesIdentity(t *testing.T) {
	orig := NewEntity(ClassPlace, Now())
	orig.Set("city_id", StringValue("0001"))
	orig.Set("number_rooms", IntValue(4))
	orig.Set("latitude", FloatValue(37.77))
	orig.Set("nickname", StringValue("cosy"))

	data, err := json.Marshal(orig.Document())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back, err := EntityFromMap(ClassPlace, decoded)
	if err != nil {
		t.Fatalf("EntityFromMap: %v", err)
	}
	if !back.Equal(orig) {
		t.Fatalf("round trip mismatch:\nwant %s\ngot  %s", orig, back)
	}
}

func TestEntityFromMapRejectsMissingIdentity(t *testing.T) {
	if _, err := EntityFromMap(ClassUser, map[string]Value{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	m := map[string]Value{KeyID: StringValue("x"), KeyCreatedAt: StringValue("yesterday"), KeyUpdatedAt: StringValue("2017-09-28T21:03:54.052298")}
	if _, err := EntityFromMap(ClassUser, m); err == nil {
		t.Fatalf("expected error for bad timestamp")
	}
	if _, err := EntityFromMap(Class("Nope"), m); err == nil {
		t.Fatalf("expected error for unknown class")
	}
}

func TestSetCoercesDeclaredAttributes(t *testing.T) {
	e := NewEntity(ClassPlace, Now())
	e.Set("number_rooms", StringValue("5"))
	if v, _ := e.Get("number_rooms"); v.Kind() != KindInt {
		t.Fatalf("expected int coercion, got %v", v.Kind())
	}
	e.Set("latitude", IntValue(3))
	if v, _ := e.Get("latitude"); v.Kind() != KindFloat || v.String() != "3.0" {
		t.Fatalf("expected float coercion, got %v %s", v.Kind(), v)
	}
	e.Set("city_id", IntValue(1))
	if v, _ := e.Get("city_id"); v.Kind() != KindString {
		t.Fatalf("expected string coercion, got %v", v.Kind())
	}
	e.Set("max_guest", StringValue("many"))
	if v, _ := e.Get("max_guest"); v.Kind() != KindString {
		t.Fatalf("expected uncoercible value kept verbatim")
	}
	if e.Set(KeyID, StringValue("hijack")) || e.Set(KeyCreatedAt, StringValue("x")) {
		t.Fatalf("expected reserved names to be rejected")
	}
}

func TestEntityStringUsesLiteralQuoting(t *testing.T) {
	e := NewEntity(ClassPlace, Now())
	e.Set("city_id", StringValue("0001"))
	e.Set("name", StringValue("My house"))
	e.Set("number_rooms", IntValue(4))
	e.Set("latitude", FloatValue(37.77))
	e.Set("longitude", FloatValue(43.434))
	out := e.String()
	for _, want := range []string{
		"[Place] (" + e.ID + ")",
		"'city_id': '0001'",
		"'name': 'My house'",
		"'number_rooms': 4",
		"'latitude': 37.77",
		"'longitude': 43.434",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}

func TestValueJSONKeepsNumericKinds(t *testing.T) {
	cases := []struct {
		in   Value
		json string
	}{
		{StringValue("0001"), `"0001"`},
		{IntValue(4), `4`},
		{FloatValue(2), `2.0`},
		{FloatValue(37.77), `37.77`},
		{FloatValue(1e20), `1e+20`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.in)
		if err != nil {
			t.Fatalf("marshal %v: %v", tc.in, err)
		}
		if string(data) != tc.json {
			t.Fatalf("marshal %v = %s, want %s", tc.in, data, tc.json)
		}
		var back Value
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if !back.Equal(tc.in) {
			t.Fatalf("round trip %s: got %v (%v)", data, back, back.Kind())
		}
	}
}

func TestQuoteLiteral(t *testing.T) {
	cases := map[string]string{
		"plain":    `'plain'`,
		"it's":     `"it's"`,
		`say "hi"`: `'say "hi"'`,
		`a'b"c`:    `'a\'b"c'`,
	}
	for in, want := range cases {
		if got := quoteLiteral(in); got != want {
			t.Fatalf("quoteLiteral(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSplitKey(t *testing.T) {
	class, id, err := SplitKey("City.1234-abcd")
	if err != nil || class != ClassCity || id != "1234-abcd" {
		t.Fatalf("SplitKey = %q %q %v", class, id, err)
	}
	for _, bad := range []string{"City", "City.", "Town.1"} {
		if _, _, err := SplitKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

type recordingStorage struct {
	Storage
	registered []*Entity
	saves      int
}

func (r *recordingStorage) New(e *Entity) error {
	r.registered = append(r.registered, e.Clone())
	return nil
}

func (r *recordingStorage) Save(context.Context) error {
	r.saves++
	return nil
}

func TestSaveDelegatesToStorage(t *testing.T) {
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewEntity(ClassState, created)
	rec := &recordingStorage{}
	later := created.Add(time.Hour)
	if err := e.Save(context.Background(), rec, later); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(rec.registered) != 1 || rec.saves != 1 {
		t.Fatalf("expected New then Save, got %d registrations and %d saves", len(rec.registered), rec.saves)
	}
	if !rec.registered[0].UpdatedAt.Equal(later) || !rec.registered[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps %v / %v", rec.registered[0].CreatedAt, rec.registered[0].UpdatedAt)
	}
}
