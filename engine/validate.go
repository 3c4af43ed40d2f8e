package engine

import (
	"strings"
)

// Missing-requirement keys returned by the validation gate.
const (
	MissingEstructura        = "estructura_alegaciones"
	MissingMargen            = "margen"
	MissingCadenaCustodia    = "cadena_custodia"
	MissingCinemometro       = "cinemometro"
	MissingPrimeraPresuncion = "primera_alegacion_presuncion"
)

var presumptionKeywords = []string{"presunción", "presuncion", "inocencia"}

// Validate scans the final body for the required literal phrases and
// structural markers of the infraction type. An empty result is a pass.
// This gate is a hard pre-condition for rendering: a failing body must
// never leave the system as a document.
func Validate(body, infractionType string) []string {
	var missing []string

	if !reAlegacionHeading.MatchString(body) {
		missing = append(missing, MissingEstructura)
	}

	if infractionType != TypeVelocidad {
		return missing
	}

	lower := strings.ToLower(body)
	if !strings.Contains(lower, "margen") {
		missing = append(missing, MissingMargen)
	}
	if !strings.Contains(lower, "cadena de custodia") {
		missing = append(missing, MissingCadenaCustodia)
	}
	if !containsAny(lower, []string{"cinemómetro", "cinemometro", "radar"}) {
		missing = append(missing, MissingCinemometro)
	}

	if heading := reAlegacionHeading.FindString(body); heading != "" {
		if containsAny(strings.ToLower(heading), presumptionKeywords) {
			missing = append(missing, MissingPrimeraPresuncion)
		}
	}

	return missing
}
