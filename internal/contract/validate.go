package contract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arriendofacil/go-contract-backend/internal/rut"
)

// Violation codes. Stable identifiers for clients; the accompanying message
// is human-readable and safe to display.
const (
	CodeMalformedRUT      = "malformed_rut"
	CodeInvalidChecksum   = "invalid_rut_checksum"
	CodeInvalidDate       = "invalid_date"
	CodeDateOrder         = "date_order"
	CodeGuarantorRequired = "guarantor_required"
	CodeGuaranteeMismatch = "guarantee_mismatch"
	CodeRentNotPositive   = "rent_not_positive"
	CodeInvalidPaymentDay = "invalid_payment_day"
)

// Violation is a single business-rule failure, tied to the payload field
// that caused it.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RuleError aggregates every violation found in one validation pass.
// Validation never stops at the first failure so a caller can show the
// complete list in a single round trip.
type RuleError struct {
	Violations []Violation
}

// Error implements the error interface with a compact summary.
func (e *RuleError) Error() string {
	if len(e.Violations) == 1 {
		return "contract: 1 rule violation: " + e.Violations[0].Message
	}
	return fmt.Sprintf("contract: %d rule violations", len(e.Violations))
}

// Validate runs every cross-field business rule over a default-filled
// payload and returns either nil or a *RuleError carrying all violations.
func Validate(p *Payload) error {
	var v []Violation

	v = appendRUT(v, "arrendador.rut", p.Arrendador.RUT)
	v = appendRUT(v, "arrendador.representante_rut", p.Arrendador.RepresentanteRUT)
	v = appendRUT(v, "propietario.rut", p.Propietario.RUT)
	v = appendRUT(v, "arrendatario.rut", p.Arrendatario.RUT)

	start, startOK := parseDate(&v, "contrato.fecha_inicio", p.Contrato.FechaInicio)
	end, endOK := parseDate(&v, "contrato.fecha_termino", p.Contrato.FechaTermino)
	_, _ = parseDate(&v, "contrato.fecha_firma", p.Contrato.FechaFirma)
	if startOK && endOK && !start.Before(end) {
		v = append(v, Violation{
			Field:   "contrato.fecha_termino",
			Code:    CodeDateOrder,
			Message: "fecha_inicio must precede fecha_termino",
		})
	}

	// Guarantor fields matter only while the flag is raised; a stale aval
	// object on a flagless payload is ignored on purpose.
	if p.Condiciones.HayAval {
		if p.Aval == nil {
			v = append(v, Violation{
				Field:   "aval",
				Code:    CodeGuarantorRequired,
				Message: "hay_aval is true but no guarantor was provided",
			})
		} else {
			required := []struct{ field, value string }{
				{"aval.nombre", p.Aval.Nombre},
				{"aval.domicilio", p.Aval.Domicilio},
			}
			for _, r := range required {
				if strings.TrimSpace(r.value) == "" {
					v = append(v, Violation{
						Field:   r.field,
						Code:    CodeGuarantorRequired,
						Message: r.field + " is required when hay_aval is true",
					})
				}
			}
			v = appendRUT(v, "aval.rut", p.Aval.RUT)
		}
	}

	if declared, computed := p.Garantia.MontoTotalCLP, guaranteeSum(p.Garantia); computed != declared {
		v = append(v, Violation{
			Field: "garantia.monto_total_clp",
			Code:  CodeGuaranteeMismatch,
			Message: fmt.Sprintf(
				"pago_inicial plus installments is %d but monto_total_clp declares %d",
				computed, declared),
		})
	}

	if p.Renta.MontoCLP <= 0 {
		v = append(v, Violation{
			Field:   "renta.monto_clp",
			Code:    CodeRentNotPositive,
			Message: "rent amount must be positive",
		})
	}
	if p.Renta.DiaPago < 1 || p.Renta.DiaPago > 28 {
		v = append(v, Violation{
			Field:   "renta.dia_pago",
			Code:    CodeInvalidPaymentDay,
			Message: "dia_pago must be between 1 and 28",
		})
	}

	if len(v) == 0 {
		return nil
	}
	return &RuleError{Violations: v}
}

func guaranteeSum(g Guarantee) int64 {
	sum := g.PagoInicialCLP
	for _, c := range g.CuotasCLP {
		sum += c
	}
	return sum
}

func appendRUT(v []Violation, field, value string) []Violation {
	_, err := rut.Normalize(value)
	switch {
	case err == nil:
		return v
	case errors.Is(err, rut.ErrInvalidChecksum):
		return append(v, Violation{
			Field:   field,
			Code:    CodeInvalidChecksum,
			Message: field + " has an invalid check digit",
		})
	default:
		return append(v, Violation{
			Field:   field,
			Code:    CodeMalformedRUT,
			Message: field + " is not a valid RUT",
		})
	}
}

func parseDate(v *[]Violation, field, value string) (time.Time, bool) {
	t, err := time.Parse(ISODate, value)
	if err != nil {
		*v = append(*v, Violation{
			Field:   field,
			Code:    CodeInvalidDate,
			Message: field + " must be an ISO date (YYYY-MM-DD)",
		})
		return time.Time{}, false
	}
	return t, true
}
