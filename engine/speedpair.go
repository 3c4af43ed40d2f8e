package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// SpeedPair is the best-effort measured/limit pair mined from OCR text.
// Confidence is advisory only; callers must not use it as a hard gate.
type SpeedPair struct {
	Measured   *int    `json:"measured"`
	Limit      *int    `json:"limit"`
	Confidence float64 `json:"confidence"`
}

// Ordered fallback chain. Rules run in priority order and only fill fields
// that are still missing; the first successful pattern wins per field.
type speedRule struct {
	re    *regexp.Regexp
	apply func(m []string, sp *SpeedPair)
}

var speedRules = []speedRule{
	// strong combined pattern: measured and limit in one sentence
	{
		re: regexp.MustCompile(`circular\s+a\s+(\d{2,3})\s*km\s*/?h[\s\S]{0,240}?(?:limitad|l[ií]mite|velocidad\s+m[aá]xima)[^\d]{0,60}(\d{2,3})`),
		apply: func(m []string, sp *SpeedPair) {
			setIfMissing(&sp.Measured, m[1])
			setIfMissing(&sp.Limit, m[2])
		},
	},
	// separate phrase patterns
	{
		re: regexp.MustCompile(`(?:circulaba|circulando|circular)\s+a\s+(\d{2,3})\s*km\s*/?h`),
		apply: func(m []string, sp *SpeedPair) {
			setIfMissing(&sp.Measured, m[1])
		},
	},
	{
		re: regexp.MustCompile(`(?:limitad[ao]?|l[ií]mite|velocidad\s+m[aá]xima)[^\d]{0,60}(\d{2,3})`),
		apply: func(m []string, sp *SpeedPair) {
			setIfMissing(&sp.Limit, m[1])
		},
	},
	// generic mentions
	{
		re: regexp.MustCompile(`velocidad[^\d]{0,20}(\d{2,3})\s*km\s*/?h`),
		apply: func(m []string, sp *SpeedPair) {
			setIfMissing(&sp.Measured, m[1])
		},
	},
	{
		re: regexp.MustCompile(`l[ií]mite[^\d]{0,20}(\d{2,3})`),
		apply: func(m []string, sp *SpeedPair) {
			setIfMissing(&sp.Limit, m[1])
		},
	},
}

var reAnyNumber = regexp.MustCompile(`\b(\d{2,3})\b`)

func setIfMissing(dst **int, s string) {
	if *dst != nil {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	*dst = &n
}

// ExtractSpeedPair scans free OCR text for a measured-speed/limit pair.
// If keyword-anchored patterns fail and at least two plausible speed-like
// numbers appear, the larger is taken as measured and the smaller as limit,
// at reduced confidence.
func ExtractSpeedPair(raw string) SpeedPair {
	text := strings.ToLower(strings.ReplaceAll(raw, "\n", " "))

	var sp SpeedPair
	for _, r := range speedRules {
		if sp.Measured != nil && sp.Limit != nil {
			break
		}
		if m := r.re.FindStringSubmatch(text); m != nil {
			r.apply(m, &sp)
		}
	}

	unanchored := false
	if sp.Measured == nil || sp.Limit == nil {
		if hi, lo, ok := twoPlausibleSpeeds(text); ok {
			if sp.Measured == nil && sp.Limit == nil {
				unanchored = true
			}
			if sp.Measured == nil {
				sp.Measured = &hi
			}
			if sp.Limit == nil {
				sp.Limit = &lo
			}
		}
	}

	conf := 0.0
	if sp.Measured != nil {
		conf += 0.45
	}
	if sp.Limit != nil {
		conf += 0.45
	}
	if sp.Measured != nil && sp.Limit != nil &&
		*sp.Limit >= 20 && *sp.Limit <= 130 && *sp.Measured >= *sp.Limit {
		conf += 0.10
	}
	if unanchored {
		conf -= 0.1
	}
	if conf < 0 {
		conf = 0
	}
	sp.Confidence = conf
	return sp
}

func twoPlausibleSpeeds(text string) (hi, lo int, ok bool) {
	seen := map[int]bool{}
	var vals []int
	for _, m := range reAnyNumber.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 10 || n > 250 || seen[n] {
			continue
		}
		seen[n] = true
		vals = append(vals, n)
	}
	if len(vals) < 2 {
		return 0, 0, false
	}
	hi, lo = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	if hi == lo {
		return 0, 0, false
	}
	return hi, lo, true
}
