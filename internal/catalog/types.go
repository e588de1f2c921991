// Package catalog holds the static food taxonomy used by the scaling pipeline.
//
// A Catalog is loaded once at startup and never mutated afterwards. It carries
// the ordered list of food items (each tagged with an explicit Role), the groups
// those items belong to, the selectable regions, the nutrient element codes that
// identify source rows, and the fixed year range every series is aligned to.
package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role tags the part a food item plays in a substitution intervention.
type Role int

const (
	// RoleUnknown is the zero value and is rejected at load time.
	RoleUnknown Role = iota

	// RoleRuminant marks items whose consumption the ruminant slider reduces.
	RoleRuminant

	// RoleOtherMeat marks non-ruminant meat items.
	RoleOtherMeat

	// RoleNonMeat marks plant and other non-meat items.
	RoleNonMeat
)

// String returns the YAML spelling of the role.
func (r Role) String() string {
	switch r {
	case RoleRuminant:
		return "ruminant"
	case RoleOtherMeat:
		return "other_meat"
	case RoleNonMeat:
		return "non_meat"
	case RoleUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// IsMeat reports whether the role is one of the meat roles.
func (r Role) IsMeat() bool {
	return r == RoleRuminant || r == RoleOtherMeat
}

// ParseRole converts a role name to a Role. Matching is case-insensitive and
// accepts hyphens in place of underscores.
func ParseRole(s string) (Role, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "ruminant":
		return RoleRuminant, nil
	case "other_meat", "othermeat":
		return RoleOtherMeat, nil
	case "non_meat", "nonmeat":
		return RoleNonMeat, nil
	default:
		return RoleUnknown, fmt.Errorf("%w: unknown role %q", ErrInvalidCatalog, s)
	}
}

// UnmarshalYAML decodes a role from its string form.
func (r *Role) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalYAML encodes a role as its string form.
func (r Role) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// Basis is the nutrient held constant under a substitution.
type Basis int

const (
	// BasisWeight conserves consumed weight (kg/capita/day).
	BasisWeight Basis = iota

	// BasisCalories conserves energy supply (kcal/capita/day).
	BasisCalories

	// BasisProtein conserves protein supply (g/capita/day).
	BasisProtein
)

// AllBases lists the bases in display order.
//
//nolint:gochecknoglobals // Fixed enumeration.
var AllBases = []Basis{BasisWeight, BasisCalories, BasisProtein}

// String returns the lowercase name of the basis.
func (b Basis) String() string {
	switch b {
	case BasisWeight:
		return "weight"
	case BasisCalories:
		return "calories"
	case BasisProtein:
		return "protein"
	default:
		return fmt.Sprintf("Basis(%d)", int(b))
	}
}

// Valid reports whether b is one of the defined bases.
func (b Basis) Valid() bool {
	return b >= BasisWeight && b <= BasisProtein
}

// ParseBasis converts a basis name to a Basis. "proteins" is accepted as an
// alias because that is how the selection control labels it.
func ParseBasis(s string) (Basis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weight":
		return BasisWeight, nil
	case "calories", "energy":
		return BasisCalories, nil
	case "protein", "proteins":
		return BasisProtein, nil
	default:
		return 0, &UnknownBasisError{Name: s}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Basis) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, &UnknownBasisError{Name: b.String()}
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Basis) UnmarshalText(text []byte) error {
	parsed, err := ParseBasis(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// FoodItem is one consumable item. Index is its position in the catalog and
// the position of its row in every per-item array.
type FoodItem struct {
	Index          int     `yaml:"-"`
	Code           string  `yaml:"code"`
	Name           string  `yaml:"name"`
	GroupID        string  `yaml:"group"`
	Role           Role    `yaml:"role"`
	EmissionFactor float64 `yaml:"emission_factor"` // kg CO2e per kg consumed
	Source         string  `yaml:"source,omitempty"`
}

// SourceName returns the name used to locate the item's source data,
// falling back to Name.
func (f FoodItem) SourceName() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Name
}

// FoodGroup is a named, ordered set of items. Groups are disjoint.
type FoodGroup struct {
	ID    string
	Name  string
	Items []FoodItem
}

// Region is a selectable country or area.
type Region struct {
	Name  string `json:"name"  yaml:"name"`
	Label string `json:"label" yaml:"label"`
	Code  int    `json:"code"  yaml:"code"`
}

// NutrientCodes maps each basis to the source element code.
type NutrientCodes struct {
	Weight   int `yaml:"weight"`
	Calories int `yaml:"calories"`
	Protein  int `yaml:"protein"`
}

// Code returns the element code for the basis.
func (n NutrientCodes) Code(b Basis) (int, error) {
	switch b {
	case BasisWeight:
		return n.Weight, nil
	case BasisCalories:
		return n.Calories, nil
	case BasisProtein:
		return n.Protein, nil
	default:
		return 0, &UnknownBasisError{Name: b.String()}
	}
}

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	First int `json:"first" yaml:"first"`
	Last  int `json:"last"  yaml:"last"`
}

// Len returns the number of years in the range.
func (y YearRange) Len() int {
	if y.Last < y.First {
		return 0
	}
	return y.Last - y.First + 1
}

// Index returns the array position of year and whether it is in range.
func (y YearRange) Index(year int) (int, bool) {
	if year < y.First || year > y.Last {
		return 0, false
	}
	return year - y.First, true
}

// Years returns every year in the range in ascending order.
func (y YearRange) Years() []int {
	out := make([]int, y.Len())
	for i := range out {
		out[i] = y.First + i
	}
	return out
}
