// Package engine implements the deterministic decision core for speed
// sanction appeals: measurement margins, the DGT sanction band table,
// tipicity cross-checking, verdict classification, attack-plan selection,
// draft post-processing and the strict validation gate.
//
// Every function here is pure over its inputs. Data gaps never raise; they
// produce conservative unknown/not-ok values instead.
package engine

import (
	_ "embed"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

type marginConfig struct {
	LowSpeedThresholdKmh int      `yaml:"low_speed_threshold_kmh"`
	FixedLowKmh          float64  `yaml:"fixed_low_kmh"`
	MobileLowKmh         float64  `yaml:"mobile_low_kmh"`
	FixedPct             float64  `yaml:"fixed_pct"`
	MobilePct            float64  `yaml:"mobile_pct"`
	MobileModes          []string `yaml:"mobile_modes"`
}

type bandRow struct {
	Lo     int    `yaml:"lo"`
	Hi     int    `yaml:"hi"`
	Fine   int    `yaml:"fine"`
	Points int    `yaml:"points"`
	Label  string `yaml:"label"`
}

type limitRow struct {
	Limit int       `yaml:"limit"`
	Bands []bandRow `yaml:"bands"`
}

type regulatoryTables struct {
	Margin           marginConfig `yaml:"margin"`
	StandardFinesEur []int        `yaml:"standard_fines_eur"`
	StandardPoints   []int        `yaml:"standard_points"`
	SanctionTable    []limitRow   `yaml:"sanction_table"`
}

var tables regulatoryTables

func init() {
	if err := yaml.Unmarshal(tablesYAML, &tables); err != nil {
		panic(fmt.Sprintf("engine: invalid embedded tables.yaml: %v", err))
	}
}

// SanctionBand is the expected quantification for a (limit, corrected speed)
// pair. Fine and Points are nil when the pair falls outside the table.
type SanctionBand struct {
	Fine         *int   `json:"fine"`
	Points       *int   `json:"points"`
	Band         string `json:"band,omitempty"`
	TableLimit   *int   `json:"table_limit"`
	CorrectedInt int    `json:"corrected_int"`
}

func isMobileMode(captureMode string) bool {
	cm := strings.ToUpper(strings.TrimSpace(captureMode))
	for _, m := range tables.Margin.MobileModes {
		if cm == m {
			return true
		}
	}
	return false
}

// ComputeMargin returns the measurement margin in km/h for a raw reading.
// Below the threshold the margin is a flat value; above it a percentage of
// the reading, rounded to 2 decimals. Unknown capture modes use the fixed
// margin, which is the most favorable reading for the citizen.
func ComputeMargin(measuredKmh int, captureMode string) float64 {
	mobile := isMobileMode(captureMode)
	if measuredKmh <= tables.Margin.LowSpeedThresholdKmh {
		if mobile {
			return tables.Margin.MobileLowKmh
		}
		return tables.Margin.FixedLowKmh
	}
	pct := tables.Margin.FixedPct
	if mobile {
		pct = tables.Margin.MobilePct
	}
	return round2(float64(measuredKmh) * pct)
}

// LookupSanction finds the band the rounded corrected speed falls into for
// the given posted limit. Limits outside the table and speeds below every
// band return an all-nil band, never an error.
func LookupSanction(postedLimitKmh int, correctedKmh float64) SanctionBand {
	v := int(math.Round(correctedKmh))
	out := SanctionBand{CorrectedInt: v}

	for _, row := range tables.SanctionTable {
		if row.Limit != postedLimitKmh {
			continue
		}
		lim := row.Limit
		out.TableLimit = &lim
		for _, b := range row.Bands {
			if v >= b.Lo && v <= b.Hi {
				fine, pts := b.Fine, b.Points
				out.Fine = &fine
				out.Points = &pts
				out.Band = b.Label
				return out
			}
		}
		return out
	}
	return out
}

// IsStandardFine reports whether an imposed amount is one of the
// recognizable DGT quantification values.
func IsStandardFine(fineEur int) bool {
	for _, f := range tables.StandardFinesEur {
		if fineEur == f {
			return true
		}
	}
	return false
}

// IsStandardPoints reports whether a point deduction is a table value.
func IsStandardPoints(points int) bool {
	for _, p := range tables.StandardPoints {
		if points == p {
			return true
		}
	}
	return false
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
