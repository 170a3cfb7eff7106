package meta

import (
	"encoding/base64"
	"math/big"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	phonenumbers "github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

// Type describes the values a field can hold.
// Implementations should be stateless and reusable.
type Type interface {
	Name() string
	Label() string
	Comparable() bool // supports ordering comparisons in queries
	Container() bool  // object, array, reference or root
	Validate(value string) bool
}

// BaseType offers default implementations.
type BaseType struct {
	name       string
	label      string
	comparable bool
	container  bool
}

func (b BaseType) Name() string         { return b.name }
func (b BaseType) Label() string        { return b.label }
func (b BaseType) Comparable() bool     { return b.comparable }
func (b BaseType) Container() bool      { return b.container }
func (b BaseType) Validate(string) bool { return !b.container }
func (b BaseType) String() string       { return b.name }

// ContainerType tags non-scalar nodes of the field tree.
type ContainerType struct{ BaseType }

func newContainerType(name, label string) *ContainerType {
	return &ContainerType{BaseType{name: name, label: label, container: true}}
}

type StringType struct{ BaseType }

func (t *StringType) Validate(value string) bool { return true }

type IntegerType struct{ BaseType }

func (t *IntegerType) Validate(value string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	return err == nil
}

type DoubleType struct{ BaseType }

func (t *DoubleType) Validate(value string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return err == nil
}

type BooleanType struct{ BaseType }

func (t *BooleanType) Validate(value string) bool {
	_, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil
}

type BigIntegerType struct{ BaseType }

func (t *BigIntegerType) Validate(value string) bool {
	_, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	return ok
}

type BigDecimalType struct{ BaseType }

func (t *BigDecimalType) Validate(value string) bool {
	_, ok := new(big.Float).SetString(strings.TrimSpace(value))
	return ok
}

// DateType accepts ISO-8601 dates and RFC3339 timestamps.
type DateType struct{ BaseType }

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func (t *DateType) Validate(value string) bool {
	if isoDate.MatchString(value) {
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	}
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}

type BinaryType struct{ BaseType }

func (t *BinaryType) Validate(value string) bool {
	_, err := base64.StdEncoding.DecodeString(value)
	return err == nil
}

// UIDType holds generated unique identifiers.
type UIDType struct{ BaseType }

func (t *UIDType) Validate(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// Generate mints a new identifier value.
func (t *UIDType) Generate() string { return uuid.NewString() }

// EmailType validates addresses, checking the domain through IDNA.
type EmailType struct{ BaseType }

var emailLocalRe = regexp.MustCompile(`^[^<>()[\]\\,;:\?\s@\"]{1,64}$`)

func (t *EmailType) Validate(value string) bool {
	s := strings.TrimSpace(strings.TrimPrefix(value, "mailto:"))
	if addr, err := mail.ParseAddress(s); err == nil {
		s = addr.Address
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	if !emailLocalRe.MatchString(s[:at]) {
		return false
	}
	domain, err := idna.Lookup.ToASCII(strings.ToLower(s[at+1:]))
	if err != nil {
		return false
	}
	return strings.Contains(domain, ".")
}

// PhoneType accepts numbers libphonenumber considers valid in international
// form.
type PhoneType struct{ BaseType }

func (t *PhoneType) Validate(value string) bool {
	n, err := phonenumbers.Parse(value, "")
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(n)
}

// Types holds the known field types by name.
type Types struct {
	String     *StringType
	Text       *StringType
	Integer    *IntegerType
	Double     *DoubleType
	Boolean    *BooleanType
	BigInteger *BigIntegerType
	BigDecimal *BigDecimalType
	Date       *DateType
	Binary     *BinaryType
	UID        *UIDType
	Email      *EmailType
	Phone      *PhoneType

	Object    *ContainerType
	Array     *ContainerType
	Reference *ContainerType
	Root      *ContainerType

	types map[string]Type
}

func NewTypes() *Types {
	r := &Types{
		String:     &StringType{BaseType{name: "string", label: "String", comparable: true}},
		Text:       &StringType{BaseType{name: "text", label: "Text"}},
		Integer:    &IntegerType{BaseType{name: "integer", label: "Integer", comparable: true}},
		Double:     &DoubleType{BaseType{name: "double", label: "Double", comparable: true}},
		Boolean:    &BooleanType{BaseType{name: "boolean", label: "Boolean"}},
		BigInteger: &BigIntegerType{BaseType{name: "biginteger", label: "Big integer", comparable: true}},
		BigDecimal: &BigDecimalType{BaseType{name: "bigdecimal", label: "Big decimal", comparable: true}},
		Date:       &DateType{BaseType{name: "date", label: "Date", comparable: true}},
		Binary:     &BinaryType{BaseType{name: "binary", label: "Binary"}},
		UID:        &UIDType{BaseType{name: "uid", label: "Unique identifier", comparable: true}},
		Email:      &EmailType{BaseType{name: "email", label: "E-Mail Address", comparable: true}},
		Phone:      &PhoneType{BaseType{name: "phone", label: "Phone number", comparable: true}},
		Object:     newContainerType("object", "Object"),
		Array:      newContainerType("array", "Array"),
		Reference:  newContainerType("reference", "Reference"),
		Root:       newContainerType("root", "Root"),
		types:      map[string]Type{},
	}
	for _, t := range []Type{r.String, r.Text, r.Integer, r.Double, r.Boolean, r.BigInteger, r.BigDecimal,
		r.Date, r.Binary, r.UID, r.Email, r.Phone, r.Object, r.Array, r.Reference, r.Root} {
		r.types[t.Name()] = t
	}
	return r
}

func (r *Types) Get(name string) Type { return r.types[name] }

// Names returns the registered type names, sorted.
func (r *Types) Names() []string {
	out := make([]string, 0, len(r.types))
	for n := range r.types {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

var registry = NewTypes()

// DefaultTypes returns the package-wide type registry.
func DefaultTypes() *Types { return registry }
