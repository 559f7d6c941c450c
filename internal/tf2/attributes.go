/**
 * @description
 * Static attribute lookup tables for Team Fortress 2 item attributes that the
 * game schema does not expose by value: spells, paint cans, strange parts,
 * killstreak sheens and killstreakers. Keys are the raw attribute values as
 * they appear on economy items.
 *
 * @notes
 * - Spell names are keyed per spell defindex (1004-1009); footprint and paint
 *   spells share their value space with paint colors.
 * - Paint value 1 is the legacy encoding some painted items carry.
 */

package tf2

import "strings"

// SpellNames maps a spell attribute defindex to its value table.
var SpellNames = map[int]map[int]string{
	1004: {
		0: "Die Job",
		1: "Chromatic Corruption",
		2: "Putrescent Pigmentation",
		3: "Spectral Spectrum",
		4: "Sinister Staining",
	},
	1005: {
		1:        "Team Spirit Footprints",
		2:        "Headless Horseshoes",
		3100495:  "Corpse Gray Footprints",
		5322826:  "Violent Violet Footprints",
		8208497:  "Bruised Purple Footprints",
		8421376:  "Gangreen Footprints",
		13595446: "Rotten Orange Footprints",
	},
	1006: {1: "Voices From Below"},
	1007: {1: "Pumpkin Bombs"},
	1008: {1: "Halloween Fire"},
	1009: {1: "Exorcism"},
}

// PaintNames maps a paint attribute value to the paint can name.
var PaintNames = map[int]string{
	1315860:  "A Distinctive Lack of Hue",
	2960676:  "After Eight",
	3100495:  "A Color Similar to Slate",
	3329330:  "The Bitter Taste of Defeat and Lime",
	3874595:  "Balaclavas Are Forever",
	4345659:  "Zepheniah's Greed",
	4732984:  "Operator's Overalls",
	5322826:  "Noble Hatter's Violet",
	6637376:  "An Air of Debonair",
	6901050:  "Radigan Conagher Brown",
	7511618:  "Indubitably Green",
	8154199:  "Ye Olde Rustic Colour",
	8289918:  "Aged Moustache Grey",
	8208497:  "A Deep Commitment to Purple",
	8400928:  "The Value of Teamwork",
	8421376:  "Drably Olive",
	10843461: "Muskelmannbraun",
	11049612: "Waterlogged Lab Coat",
	12073019: "Team Spirit",
	12377523: "A Mann's Mint",
	12807213: "Cream Spirit",
	12955537: "Peculiarly Drab Tincture",
	13595446: "Mann Co. Orange",
	14204632: "Color No. 216-190-216",
	15132390: "An Extraordinary Abundance of Tinge",
	15185211: "Australium Gold",
	15308410: "Dark Salmon Injustice",
	15787660: "The Color of a Gentlemann's Business Pants",
	16738740: "Pink as Hell",
	1:        "#B8383B",
}

// StrangePartNames maps a strange part score type to its name.
var StrangePartNames = map[int]string{
	10: "Scouts Killed",
	11: "Snipers Killed",
	12: "Soldiers Killed",
	13: "Demomen Killed",
	14: "Heavies Killed",
	15: "Pyros Killed",
	16: "Spies Killed",
	17: "Engineers Killed",
	18: "Medics Killed",
	19: "Buildings Destroyed",
	20: "Projectiles Reflected",
	21: "Headshot Kills",
	22: "Airborne Enemy Kills",
	23: "Gib Kills",
	27: "Kills Under A Full Moon",
	28: "Dominations",
	30: "Revenges",
	31: "Posthumous Kills",
	32: "Teammates Extinguished",
	33: "Critical Kills",
	34: "Kills While Explosive-Jumping",
	36: "Sappers Removed",
	37: "Cloaked Spies Killed",
	38: "Medics Killed That Have Full ÜberCharge",
	39: "Robots Destroyed",
	40: "Giant Robots Destroyed",
	44: "Kills While Low Health",
	45: "Kills During Halloween",
	46: "Robots Killed During Halloween",
	47: "Defenders Killed",
	48: "Submerged Enemy Kills",
	49: "Kills While Invuln ÜberCharged",
	61: "Tanks Destroyed",
	62: "Long-Distance Kills",
	64: "Kills During Victory Time",
	65: "Robot Scouts Destroyed",
	66: "Robot Spies Destroyed",
	67: "Taunt Kills",
	68: "Unusual-Wearing Player Kills",
	69: "Burning Player Kills",
	70: "Killstreaks Ended",
	71: "Freezecam Taunt Appearances",
	72: "Damage Dealt",
	73: "Fires Survived",
	74: "Allied Healing Done",
	75: "Point Blank Kills",
	77: "Kills",
	78: "Full Health Kills",
	79: "Taunting Player Kills",
	80: "Carnival Kills",
	81: "Carnival Underworld Kills",
	82: "Carnival Games Won",
	83: "Not Crit nor MiniCrit Kills",
	84: "Players Hit",
	85: "Assists",
}

// SheenNames maps a killstreak sheen value to its name.
var SheenNames = map[int]string{
	1: "Team Shine",
	2: "Deadly Daffodil",
	3: "Manndarin",
	4: "Mean Green",
	5: "Agonizing Emerald",
	6: "Villainous Violet",
	7: "Hot Rod",
}

// KillstreakerNames maps a killstreaker value to its name.
var KillstreakerNames = map[int]string{
	2002: "Fire Horns",
	2003: "Cerebral Discharge",
	2004: "Tornado",
	2005: "Flames",
	2006: "Singularity",
	2007: "Incinerator",
	2008: "Hypno-Beam",
}

// SpellByName resolves a spell name back to its (defindex, value) pair.
// Matching is case-insensitive. Returns false when the name is unknown.
func SpellByName(name string) (defindex int, value int, ok bool) {
	for d, values := range SpellNames {
		for v, n := range values {
			if strings.EqualFold(n, name) {
				return d, v, true
			}
		}
	}
	return 0, 0, false
}
