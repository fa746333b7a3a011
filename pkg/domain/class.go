// Package domain defines the managed entity classes, their attribute schemas,
// the typed attribute values, and the storage contract every backend satisfies.
package domain

// Class identifies one of the closed set of managed entity classes. It doubles
// as the storage partition key ("<Class>.<id>").
type Class string

// Supported classes. The set is closed: ParseClass is the only way to turn
// user input into a Class.
const (
	ClassBaseModel Class = "BaseModel"
	ClassUser      Class = "User"
	ClassState     Class = "State"
	ClassCity      Class = "City"
	ClassAmenity   Class = "Amenity"
	ClassPlace     Class = "Place"
	ClassReview    Class = "Review"
)

// Kind is the semantic type of an attribute value.
type Kind uint8

// Attribute kinds recognised by schemas and values.
const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Field is a declared attribute of a class schema.
type Field struct {
	Name string
	Kind Kind
}

var classes = []Class{
	ClassBaseModel,
	ClassUser,
	ClassState,
	ClassCity,
	ClassAmenity,
	ClassPlace,
	ClassReview,
}

var schemas = map[Class][]Field{
	ClassBaseModel: nil,
	ClassUser: {
		{Name: "email", Kind: KindString},
		{Name: "password", Kind: KindString},
		{Name: "first_name", Kind: KindString},
		{Name: "last_name", Kind: KindString},
	},
	ClassState: {
		{Name: "name", Kind: KindString},
	},
	ClassCity: {
		{Name: "state_id", Kind: KindString},
		{Name: "name", Kind: KindString},
	},
	ClassAmenity: {
		{Name: "name", Kind: KindString},
	},
	ClassPlace: {
		{Name: "city_id", Kind: KindString},
		{Name: "user_id", Kind: KindString},
		{Name: "name", Kind: KindString},
		{Name: "description", Kind: KindString},
		{Name: "number_rooms", Kind: KindInt},
		{Name: "number_bathrooms", Kind: KindInt},
		{Name: "max_guest", Kind: KindInt},
		{Name: "price_by_night", Kind: KindInt},
		{Name: "latitude", Kind: KindFloat},
		{Name: "longitude", Kind: KindFloat},
	},
	ClassReview: {
		{Name: "place_id", Kind: KindString},
		{Name: "user_id", Kind: KindString},
		{Name: "text", Kind: KindString},
	},
}

// ParseClass resolves a class name. Matching is exact and case-sensitive.
func ParseClass(name string) (Class, bool) {
	switch Class(name) {
	case ClassBaseModel, ClassUser, ClassState, ClassCity, ClassAmenity, ClassPlace, ClassReview:
		return Class(name), true
	default:
		return "", false
	}
}

// Classes returns every known class in declaration order.
func Classes() []Class {
	out := make([]Class, len(classes))
	copy(out, classes)
	return out
}

// Valid reports whether c is one of the known classes.
func (c Class) Valid() bool {
	_, ok := ParseClass(string(c))
	return ok
}

// Schema returns the declared attributes of the class in declaration order.
func (c Class) Schema() []Field {
	fields := schemas[c]
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Field looks up a declared attribute by name.
func (c Class) Field(name string) (Field, bool) {
	for _, f := range schemas[c] {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
