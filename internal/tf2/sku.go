/**
 * @description
 * Canonical TF2 SKU codec. A sku encodes one item instance class as
 * `defindex;quality` plus optional flags (effect, wear, killstreak tier, ...).
 * Example: "5021;6" is a Unique Mann Co. Supply Crate Key.
 *
 * @notes
 * - ParseSku/String round-trip; TestSku validates the shape without a schema.
 * - Name conversion lives on tf2.Schema since it needs the item dictionary.
 */

package tf2

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Sku is the parsed form of a canonical sku string.
type Sku struct {
	Defindex        int
	Quality         int
	Effect          int // unusual particle effect id, 0 = none
	PaintKit        int // war paint id, 0 = none
	Wear            int // 1..5, 0 = none
	Killstreak      int // 0..3
	Australium      bool
	Craftable       bool
	Tradable        bool
	Festive         bool // festivized
	ElevatedStrange bool // strange counter on a non-strange quality
	Target          int  // target defindex (killstreak kits etc), 0 = none
	Output          int
	OutputQuality   int
	CraftNumber     int
	CrateSeries     int
}

var skuPattern = regexp.MustCompile(`^\d+;([0-9]|1[0-5])(;(uncraftable|untradable|australium|festive|strange|u\d+|pk\d+|w[1-5]|kt-[1-3]|n(100|[1-9]\d?)|td-\d+|c\d+|od-\d+|oq-\d+))*$`)

// TestSku reports whether the string has a valid sku shape. It does not
// check that the defindex exists in the schema.
func TestSku(sku string) bool {
	return skuPattern.MatchString(sku)
}

// ParseSku parses a canonical sku string.
func ParseSku(raw string) (Sku, error) {
	parts := strings.Split(raw, ";")
	if len(parts) < 2 {
		return Sku{}, fmt.Errorf("invalid sku %q", raw)
	}

	defindex, err := strconv.Atoi(parts[0])
	if err != nil {
		return Sku{}, fmt.Errorf("invalid sku %q: bad defindex", raw)
	}
	quality, err := strconv.Atoi(parts[1])
	if err != nil || quality < 0 || quality > 15 {
		return Sku{}, fmt.Errorf("invalid sku %q: bad quality", raw)
	}

	sku := Sku{
		Defindex:  defindex,
		Quality:   quality,
		Craftable: true,
		Tradable:  true,
	}

	for _, part := range parts[2:] {
		switch {
		case part == "uncraftable":
			sku.Craftable = false
		case part == "untradable":
			sku.Tradable = false
		case part == "australium":
			sku.Australium = true
		case part == "festive":
			sku.Festive = true
		case part == "strange":
			sku.ElevatedStrange = true
		case strings.HasPrefix(part, "kt-"):
			if sku.Killstreak, err = strconv.Atoi(part[3:]); err != nil {
				return Sku{}, fmt.Errorf("invalid sku %q: bad killstreak %q", raw, part)
			}
		case strings.HasPrefix(part, "td-"):
			if sku.Target, err = strconv.Atoi(part[3:]); err != nil {
				return Sku{}, fmt.Errorf("invalid sku %q: bad target %q", raw, part)
			}
		case strings.HasPrefix(part, "od-"):
			if sku.Output, err = strconv.Atoi(part[3:]); err != nil {
				return Sku{}, fmt.Errorf("invalid sku %q: bad output %q", raw, part)
			}
		case strings.HasPrefix(part, "oq-"):
			if sku.OutputQuality, err = strconv.Atoi(part[3:]); err != nil {
				return Sku{}, fmt.Errorf("invalid sku %q: bad output quality %q", raw, part)
			}
		case strings.HasPrefix(part, "pk"):
			if sku.PaintKit, err = strconv.Atoi(part[2:]); err != nil {
				return Sku{}, fmt.Errorf("invalid sku %q: bad paint kit %q", raw, part)
			}
		case strings.HasPrefix(part, "u"):
			if sku.Effect, err = strconv.Atoi(part[1:]); err != nil {
				return Sku{}, fmt.Errorf("invalid sku %q: bad effect %q", raw, part)
			}
		case strings.HasPrefix(part, "w"):
			if sku.Wear, err = strconv.Atoi(part[1:]); err != nil || sku.Wear < 1 || sku.Wear > 5 {
				return Sku{}, fmt.Errorf("invalid sku %q: bad wear %q", raw, part)
			}
		case strings.HasPrefix(part, "n"):
			if sku.CraftNumber, err = strconv.Atoi(part[1:]); err != nil {
				return Sku{}, fmt.Errorf("invalid sku %q: bad craft number %q", raw, part)
			}
		case strings.HasPrefix(part, "c"):
			if sku.CrateSeries, err = strconv.Atoi(part[1:]); err != nil {
				return Sku{}, fmt.Errorf("invalid sku %q: bad crate series %q", raw, part)
			}
		default:
			return Sku{}, fmt.Errorf("invalid sku %q: unknown part %q", raw, part)
		}
	}

	return sku, nil
}

// String renders the canonical sku string. Field order follows the
// community convention so skus stay byte-comparable.
func (s Sku) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.Defindex))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(s.Quality))

	if s.Effect != 0 {
		fmt.Fprintf(&b, ";u%d", s.Effect)
	}
	if s.Australium {
		b.WriteString(";australium")
	}
	if !s.Craftable {
		b.WriteString(";uncraftable")
	}
	if !s.Tradable {
		b.WriteString(";untradable")
	}
	if s.Wear != 0 {
		fmt.Fprintf(&b, ";w%d", s.Wear)
	}
	if s.PaintKit != 0 {
		fmt.Fprintf(&b, ";pk%d", s.PaintKit)
	}
	if s.ElevatedStrange {
		b.WriteString(";strange")
	}
	if s.Killstreak != 0 {
		fmt.Fprintf(&b, ";kt-%d", s.Killstreak)
	}
	if s.Target != 0 {
		fmt.Fprintf(&b, ";td-%d", s.Target)
	}
	if s.Festive {
		b.WriteString(";festive")
	}
	if s.CraftNumber != 0 {
		fmt.Fprintf(&b, ";n%d", s.CraftNumber)
	}
	if s.CrateSeries != 0 {
		fmt.Fprintf(&b, ";c%d", s.CrateSeries)
	}
	if s.Output != 0 {
		fmt.Fprintf(&b, ";od-%d", s.Output)
	}
	if s.OutputQuality != 0 {
		fmt.Fprintf(&b, ";oq-%d", s.OutputQuality)
	}

	return b.String()
}

// QualityUnique is the default item quality; names never carry its prefix.
const (
	QualityUnique    = 6
	QualityUnusual   = 5
	QualityStrange   = 11
	QualityDecorated = 15
)

var wearNames = map[int]string{
	1: "Factory New",
	2: "Minimal Wear",
	3: "Field-Tested",
	4: "Well-Worn",
	5: "Battle Scarred",
}

var wearByName = map[string]int{
	"factory new":    1,
	"minimal wear":   2,
	"field-tested":   3,
	"well-worn":      4,
	"battle scarred": 5,
}

var killstreakPrefixes = []struct {
	Tier   int
	Prefix string
}{
	{3, "Professional Killstreak "},
	{2, "Specialized Killstreak "},
	{1, "Killstreak "},
}
