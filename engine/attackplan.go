package engine

// Primary argument titles. Shared with the post-processing transforms so
// title normalization and plan construction cannot drift apart.
const (
	TitleTipicidad      = "VULNERACIÓN DEL PRINCIPIO DE TIPICIDAD Y ERRÓNEA SUBSUNCIÓN NORMATIVA"
	TitlePrecepto       = "FALTA DE IDENTIFICACIÓN PRECISA DEL PRECEPTO Y MOTIVACIÓN DEL ENCAJE TÍPICO (INDEFENSIÓN)"
	TitleInexistencia   = "INEXISTENCIA DE INFRACCIÓN POR APLICACIÓN DEL MARGEN DE ERROR REGLAMENTARIO"
	TitleErrorTramo     = "POSIBLE ERROR DE GRADUACIÓN SANCIONADORA Y TRAMO INDEBIDAMENTE APLICADO"
	TitleCuantificacion = "EXIGENCIA DE MOTIVACIÓN Y CLARIFICACIÓN DEL CRITERIO DE CUANTIFICACIÓN (INDEFENSIÓN)"
	TitleMetrologia     = "PRUEBA TÉCNICA, METROLOGÍA Y CADENA DE CUSTODIA DEL CINEMÓMETRO"
)

// Argument is one alegación of the appeal: a title plus its points.
type Argument struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

// Petition is the SOLICITO section skeleton.
type Petition struct {
	Main       string `json:"main"`
	Subsidiary string `json:"subsidiary"`
}

// AttackPlan is the ordered legal strategy for one generation run. Built
// once per run from the verdicts and never mutated afterwards.
type AttackPlan struct {
	InfractionType string     `json:"infraction_type"`
	Primary        Argument   `json:"primary"`
	Secondary      []Argument `json:"secondary"`
	ProofRequests  []string   `json:"proof_requests"`
	Petition       Petition   `json:"petition"`
}

// PlanSignals are the classification facts the builder dispatches on,
// beyond the verdicts themselves.
type PlanSignals struct {
	InfractionType     string
	CaptureMode        string
	NotificationIssues bool
	DocumentationGaps  bool
}

var metrologyArgument = Argument{
	Title: TitleMetrologia,
	Points: []string{
		"Identificación completa del cinemómetro empleado (marca, modelo y número de serie).",
		"Certificado de verificación periódica vigente conforme a la Orden ICT/155/2020.",
		"Margen de error aplicado y velocidad corregida resultante.",
		"Fotograma o captura completa, sin recortes, con fecha, hora y ubicación exacta.",
		"Cadena de custodia del dato desde la captación hasta su incorporación al expediente.",
		"Acreditación de la señalización del límite de velocidad en el tramo.",
	},
}

var velocityProofRequests = []string{
	"Copia íntegra y legible del expediente administrativo.",
	"Certificado de verificación del cinemómetro y documentación metrológica completa.",
	"Fotograma íntegro de la captación con sus metadatos.",
	"Acreditación del margen aplicado y de la velocidad corregida.",
}

// BuildAttackPlan applies the strict priority rule: tipicity mismatch
// beats tipicity unknown beats any velocity quantification posture beats
// the metrology checklist beats type-specific checklists. The primary
// argument is never presumption of innocence; that only appears as a
// reinforcing secondary point.
func BuildAttackPlan(sig PlanSignals, tip TipicityVerdict, vv VelocityVerdict, calc VelocityCalc) AttackPlan {
	plan := AttackPlan{
		InfractionType: sig.InfractionType,
		Petition: Petition{
			Main:       "Que se acuerde el ARCHIVO del expediente por insuficiencia probatoria y falta de acreditación técnica suficiente.",
			Subsidiary: "Subsidiariamente, que se practique la prueba propuesta y se aporte copia íntegra del expediente administrativo.",
		},
	}

	switch {
	case tip.Match == TipicityMismatch:
		plan.Primary = Argument{
			Title: TitleTipicidad,
			Points: []string{
				"El Derecho Administrativo Sancionador exige subsunción exacta entre el hecho descrito y el precepto aplicado.",
				"El artículo citado no se corresponde con la conducta imputada según la documentación disponible.",
				"La errónea subsunción genera indefensión material y procede el archivo.",
			},
		}
		plan.ProofRequests = []string{
			"Identificación expresa del artículo y apartado aplicados.",
			"Motivación completa del encaje del hecho en el precepto.",
			"Copia íntegra del expediente (denuncia, propuesta y resolución, si existieran).",
		}

	case tip.Match == TipicityUnknown:
		plan.Primary = Argument{
			Title: TitlePrecepto,
			Points: []string{
				"No consta acreditado con precisión el precepto efectivamente aplicado (artículo y apartado).",
				"No consta la subsunción concreta del hecho imputado en el precepto, lo que impide contradicción efectiva.",
				"Se solicita identificación expresa de la norma aplicable y motivación individualizada.",
			},
		}
		plan.ProofRequests = []string{
			"Copia íntegra del expediente administrativo.",
			"Identificación expresa del precepto aplicado (artículo/apartado) y fundamentos jurídicos.",
		}

	case sig.InfractionType == TypeVelocidad:
		buildVelocityBranch(&plan, vv)

	default:
		plan.Primary = typeChecklist(sig.InfractionType)
		plan.ProofRequests = typeProofRequests(sig.InfractionType)
	}

	// metrology travels as secondary whenever it did not lead a velocity case
	if sig.InfractionType == TypeVelocidad && plan.Primary.Title != TitleMetrologia {
		plan.Secondary = append(plan.Secondary, metrologyArgument)
		plan.ProofRequests = append(plan.ProofRequests, velocityProofRequests...)
	}

	if sig.NotificationIssues {
		plan.Secondary = append(plan.Secondary, Argument{
			Title: "Defectos de notificación y cómputo de plazos",
			Points: []string{
				"No consta acreditada la práctica regular de la notificación ni la fecha de recepción.",
				"El cómputo del plazo debe acreditarse documentalmente; su ausencia impide verificar la validez del trámite.",
			},
		})
	}

	if sig.DocumentationGaps {
		plan.Secondary = append(plan.Secondary, Argument{
			Title: "Insuficiencia de motivación del acto sancionador",
			Points: []string{
				"La resolución sancionadora debe ser motivada conforme a la Ley 39/2015.",
				"Las carencias documentales del expediente impiden conocer los fundamentos completos de la imputación.",
			},
		})
	}

	plan.Secondary = append(plan.Secondary, Argument{
		Title: "Refuerzo: presunción de inocencia y carga de la prueba",
		Points: []string{
			"Corresponde a la Administración acreditar los hechos; la duda sobre la prueba técnica favorece al interesado.",
		},
	})

	return plan
}

func buildVelocityBranch(plan *AttackPlan, vv VelocityVerdict) {
	switch vv.Mode {
	case ModeInexistenciaInfraccion:
		plan.Primary = Argument{
			Title: TitleInexistencia,
			Points: []string{
				"Aplicado el margen de error reglamentario, la velocidad corregida no supera el límite de la vía.",
				"Sin superación del límite no existe el hecho típico sancionable y procede el archivo.",
				"Corresponde a la Administración acreditar el margen aplicado y la velocidad corregida.",
			},
		}
		plan.ProofRequests = velocityProofRequests

	case ModeErrorTramo:
		plan.Primary = Argument{
			Title: TitleErrorTramo,
			Points: []string{
				"La aplicación del margen legal podría situar la velocidad corregida en un tramo distinto al sancionado.",
				"No consta acreditado el criterio de graduación aplicado ni su encaje exacto en el tramo correspondiente.",
				"La discrepancia exige motivación reforzada y acreditación técnica completa.",
			},
		}
		plan.ProofRequests = []string{
			"Acreditación del tramo sancionador aplicado y de su correspondencia con la velocidad corregida.",
		}

	case ModeIncongruente, ModeFaltaCuantificacion:
		plan.Primary = Argument{
			Title: TitleCuantificacion,
			Points: []string{
				"No consta acreditado el criterio jurídico-técnico seguido para la cuantificación de la sanción.",
				"La ausencia de correspondencia verificable con el tramo legal aplicable genera indefensión material.",
				"Se solicita aclaración del criterio de cuantificación y copia íntegra del expediente.",
			},
		}
		plan.ProofRequests = []string{
			"Aclaración expresa del criterio de cuantificación aplicado.",
		}

	default: // correcto, unknown
		plan.Primary = metrologyArgument
		plan.ProofRequests = velocityProofRequests
	}
}

func typeChecklist(infractionType string) Argument {
	switch infractionType {
	case TypeSemaforo:
		return Argument{
			Title: "Insuficiencia probatoria en infracción por semáforo en fase roja",
			Points: []string{
				"La sanción por circular con luz roja exige prueba suficiente y concreta del hecho infractor.",
				"Debe acreditarse la fase roja efectiva en el momento exacto del cruce, no una fórmula genérica.",
				"Debe constar identificación clara del vehículo y su posición respecto de la línea de detención.",
			},
		}
	case TypeMovil:
		return Argument{
			Title: "Insuficiencia probatoria en infracción por uso de teléfono móvil",
			Points: []string{
				"La denuncia debe describir con precisión la conducta observada (sujeción o manipulación del dispositivo).",
				"Deben constar las circunstancias de observación del agente: distancia, visibilidad y posición.",
				"La fórmula genérica sin descripción individualizada impide la contradicción efectiva.",
			},
		}
	case TypeSeguro:
		return Argument{
			Title: "Falta de acreditación de la carencia de seguro obligatorio",
			Points: []string{
				"La infracción exige acreditar la inexistencia de póliza en la fecha del hecho, no una mera consulta desfasada.",
				"Debe constar la consulta a FIVA con fecha y resultado, o certificación equivalente.",
				"La carga de acreditar el hecho negativo documentado corresponde a la Administración.",
			},
		}
	case TypeITV:
		return Argument{
			Title: "Falta de acreditación del estado de la inspección técnica",
			Points: []string{
				"Debe constar la situación registral de la ITV del vehículo en la fecha exacta de la denuncia.",
				"No consta certificación del registro ni documento que acredite la inspección desfavorable o caducada.",
			},
		}
	case TypeAtencion:
		return Argument{
			Title: "Insuficiencia probatoria en infracción por falta de atención a la conducción",
			Points: []string{
				"La falta de atención es un concepto que exige descripción concreta de la conducta observada.",
				"Debe constar qué maniobra o circunstancia evidenció la distracción y cómo fue observada.",
			},
		}
	case TypeMarcasViales:
		return Argument{
			Title: "Insuficiencia probatoria en infracción por no respetar marcas viales",
			Points: []string{
				"Debe identificarse la marca vial concreta incumplida y su estado de conservación y visibilidad.",
				"Debe constar la posición exacta del vehículo respecto de la marca en el momento del hecho.",
			},
		}
	case TypeCondicionesVehiculo:
		return Argument{
			Title: "Falta de acreditación de las condiciones del vehículo imputadas",
			Points: []string{
				"La deficiencia técnica imputada debe describirse con precisión y acreditarse objetivamente.",
				"No consta informe técnico ni documentación gráfica de la deficiencia señalada.",
			},
		}
	default:
		return Argument{
			Title: "Insuficiencia probatoria del hecho imputado",
			Points: []string{
				"La denuncia debe contener una descripción precisa e individualizada del hecho.",
				"No consta prueba suficiente que permita verificar el hecho imputado ni ejercer contradicción efectiva.",
			},
		}
	}
}

func typeProofRequests(infractionType string) []string {
	base := []string{
		"Copia íntegra y legible del boletín o acta de denuncia.",
		"Copia íntegra del expediente administrativo.",
	}
	switch infractionType {
	case TypeSemaforo:
		return append(base,
			"Secuencia completa de fotografías o fotogramas si la captación es automática.",
			"Acreditación del correcto funcionamiento del sistema de captación.",
			"Detalle de la fase semafórica y hora exacta del hecho.",
			"Identificación del agente y circunstancias de observación si la denuncia es presencial.",
		)
	case TypeSeguro:
		return append(base, "Resultado de la consulta a FIVA con fecha y hora.")
	case TypeITV:
		return append(base, "Certificación registral de la situación de la ITV en la fecha de la denuncia.")
	default:
		return base
	}
}
