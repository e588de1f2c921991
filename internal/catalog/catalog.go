package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a catalog file omits them.
const (
	// DefaultDaysPerYear converts per-day supply to annual consumption.
	DefaultDaysPerYear = 365.25

	// DefaultNormalization converts kg CO2e to gigatons CO2e.
	DefaultNormalization = 1e12
)

//go:embed default.yaml
var defaultCatalogYAML []byte

// groupDef is the YAML shape of a group entry.
type groupDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// fileFormat is the YAML document layout of a catalog file.
type fileFormat struct {
	Years         YearRange     `yaml:"years"`
	DaysPerYear   float64       `yaml:"days_per_year"`
	Normalization float64       `yaml:"normalization"`
	Nutrients     NutrientCodes `yaml:"nutrients"`
	Regions       []Region      `yaml:"regions"`
	Groups        []groupDef    `yaml:"groups"`
	Items         []FoodItem    `yaml:"items"`
}

// Catalog is the immutable food taxonomy. All accessors return copies.
type Catalog struct {
	years         YearRange
	daysPerYear   float64
	normalization float64
	nutrients     NutrientCodes
	regions       []Region
	items         []FoodItem
	groups        []FoodGroup
	groupIndex    map[string]int
	itemGroup     []int
}

// Default returns the built-in catalog: four meat items followed by four
// legumes, the three dashboard regions and the 1961-2018 year range.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		// The embedded file is covered by tests; failing here is a build defect.
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load parses and validates a catalog YAML document.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var def fileFormat
	if err = yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML: %w", ErrInvalidCatalog, err)
	}

	return build(def)
}

// build validates a decoded definition and resolves group membership.
//
//nolint:gocognit // Validation is a flat sequence of checks.
func build(def fileFormat) (*Catalog, error) {
	if def.Years.Len() == 0 {
		return nil, fmt.Errorf("%w: empty year range %d..%d", ErrInvalidCatalog, def.Years.First, def.Years.Last)
	}
	if def.DaysPerYear == 0 {
		def.DaysPerYear = DefaultDaysPerYear
	}
	if def.Normalization == 0 {
		def.Normalization = DefaultNormalization
	}
	if def.DaysPerYear < 0 || def.Normalization < 0 {
		return nil, fmt.Errorf("%w: days_per_year and normalization must be positive", ErrInvalidCatalog)
	}
	if len(def.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidCatalog)
	}

	c := &Catalog{
		years:         def.Years,
		daysPerYear:   def.DaysPerYear,
		normalization: def.Normalization,
		nutrients:     def.Nutrients,
		groupIndex:    make(map[string]int),
	}

	names := make(map[string]string, len(def.Groups))
	for _, g := range def.Groups {
		if g.ID == "" {
			return nil, fmt.Errorf("%w: group with empty id", ErrInvalidCatalog)
		}
		if _, dup := names[g.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate group %q", ErrInvalidCatalog, g.ID)
		}
		names[g.ID] = g.Name
	}

	seenCodes := make(map[string]bool, len(def.Items))
	ruminants := 0
	for i, item := range def.Items {
		if item.Code == "" {
			return nil, fmt.Errorf("%w: item %d has no code", ErrInvalidCatalog, i)
		}
		if seenCodes[item.Code] {
			return nil, fmt.Errorf("%w: duplicate item code %q", ErrInvalidCatalog, item.Code)
		}
		seenCodes[item.Code] = true
		if item.Role == RoleUnknown {
			return nil, fmt.Errorf("%w: item %q has no role", ErrInvalidCatalog, item.Code)
		}
		if item.Role == RoleRuminant {
			ruminants++
		}
		if math.IsNaN(item.EmissionFactor) || math.IsInf(item.EmissionFactor, 0) || item.EmissionFactor < 0 {
			return nil, fmt.Errorf("%w: item %q has invalid emission factor %v",
				ErrInvalidCatalog, item.Code, item.EmissionFactor)
		}
		groupName, ok := names[item.GroupID]
		if !ok {
			return nil, fmt.Errorf("%w: item %q references unknown group %q", ErrInvalidCatalog, item.Code, item.GroupID)
		}

		item.Index = i
		c.items = append(c.items, item)

		// Groups are ordered by first appearance among items.
		gi, exists := c.groupIndex[item.GroupID]
		if !exists {
			gi = len(c.groups)
			c.groupIndex[item.GroupID] = gi
			c.groups = append(c.groups, FoodGroup{ID: item.GroupID, Name: groupName})
		}
		c.groups[gi].Items = append(c.groups[gi].Items, item)
		c.itemGroup = append(c.itemGroup, gi)
	}

	if ruminants == 0 {
		return nil, fmt.Errorf("%w: at least one item must have role ruminant", ErrInvalidCatalog)
	}
	if len(c.groups) != len(names) {
		return nil, fmt.Errorf("%w: %d groups declared but only %d have items",
			ErrInvalidCatalog, len(names), len(c.groups))
	}

	seenRegions := make(map[string]bool, len(def.Regions))
	for _, r := range def.Regions {
		key := strings.ToLower(r.Name)
		if key == "" {
			return nil, fmt.Errorf("%w: region with empty name", ErrInvalidCatalog)
		}
		if seenRegions[key] {
			return nil, fmt.Errorf("%w: duplicate region %q", ErrInvalidCatalog, r.Name)
		}
		seenRegions[key] = true
		if r.Label == "" {
			r.Label = r.Name
		}
		c.regions = append(c.regions, r)
	}

	return c, nil
}

// Years returns the fixed year range.
func (c *Catalog) Years() YearRange { return c.years }

// DaysPerYear returns the per-day to per-year multiplier.
func (c *Catalog) DaysPerYear() float64 { return c.daysPerYear }

// Normalization returns the divisor converting kg CO2e to the reporting unit.
func (c *Catalog) Normalization() float64 { return c.normalization }

// Nutrients returns the element codes for each basis.
func (c *Catalog) Nutrients() NutrientCodes { return c.nutrients }

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Items returns the items in catalog order.
func (c *Catalog) Items() []FoodItem {
	out := make([]FoodItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the item at index i.
func (c *Catalog) Item(i int) FoodItem { return c.items[i] }

// Groups returns the groups in first-seen order.
func (c *Catalog) Groups() []FoodGroup {
	out := make([]FoodGroup, len(c.groups))
	for i, g := range c.groups {
		items := make([]FoodItem, len(g.Items))
		copy(items, g.Items)
		out[i] = FoodGroup{ID: g.ID, Name: g.Name, Items: items}
	}
	return out
}

// Group looks up a group by id.
func (c *Catalog) Group(id string) (FoodGroup, error) {
	gi, ok := c.groupIndex[id]
	if !ok {
		return FoodGroup{}, fmt.Errorf("%w: %q", ErrUnknownGroup, id)
	}
	return c.Groups()[gi], nil
}

// GroupIndex returns the position of the group that owns item i.
func (c *Catalog) GroupIndex(item int) int { return c.itemGroup[item] }

// IndicesWithRole returns item indices tagged with role, in catalog order.
func (c *Catalog) IndicesWithRole(role Role) []int {
	var out []int
	for _, item := range c.items {
		if item.Role == role {
			out = append(out, item.Index)
		}
	}
	return out
}

// Regions returns the selectable regions.
func (c *Catalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Region resolves a region by name (case-insensitive).
func (c *Catalog) Region(name string) (Region, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, r := range c.regions {
		if strings.ToLower(r.Name) == key {
			return r, true
		}
	}
	return Region{}, false
}

// New builds a catalog programmatically. Groups are declared implicitly by
// the items' GroupID and named after it unless groupNames overrides.
func New(years YearRange, nutrients NutrientCodes, items []FoodItem, groupNames map[string]string, regions ...Region) (*Catalog, error) {
	def := fileFormat{
		Years:     years,
		Nutrients: nutrients,
		Regions:   regions,
		Items:     items,
	}
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.GroupID] {
			continue
		}
		seen[item.GroupID] = true
		name := groupNames[item.GroupID]
		if name == "" {
			name = item.GroupID
		}
		def.Groups = append(def.Groups, groupDef{ID: item.GroupID, Name: name})
	}
	return build(def)
}
