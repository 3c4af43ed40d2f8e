package models

// Draft is the LLM-produced appeal text after deterministic post-processing.
// Only Asunto and Cuerpo survive into the rendered documents; the rest is
// operator-facing metadata.
type Draft struct {
	Asunto           string                 `json:"asunto"`
	Cuerpo           string                 `json:"cuerpo"`
	VariablesUsadas  map[string]interface{} `json:"variables_usadas,omitempty"`
	Checks           []string               `json:"checks,omitempty"`
	NotesForOperator string                 `json:"notes_for_operator,omitempty"`
}
