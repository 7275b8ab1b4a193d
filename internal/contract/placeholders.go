package contract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrFormat is returned by BuildPlaceholders when a payload value cannot be
// rendered (today that means an unparseable date slipped past validation).
var ErrFormat = errors.New("contract: format error")

// clPrinter formats numbers with Chilean grouping: dots for thousands,
// comma as the decimal separator.
var clPrinter = message.NewPrinter(language.MustParse("es-CL"))

// spanishMonths indexes month names by time.Month.
var spanishMonths = [...]string{
	"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// BuildPlaceholders flattens a normalized payload into the full marker →
// display-string map used during template substitution. It is a pure
// function; templates that do not reference a produced marker simply leave
// it unused. Markers are Spanish uppercase tokens matching the template
// authoring convention ([[FECHA_INICIO]], [[CUOTA_1_MONTO]], ...).
func BuildPlaceholders(p *Payload) (map[string]string, error) {
	m := make(map[string]string, 48)

	for marker, iso := range map[string]string{
		"FECHA_FIRMA":   p.Contrato.FechaFirma,
		"FECHA_INICIO":  p.Contrato.FechaInicio,
		"FECHA_TERMINO": p.Contrato.FechaTermino,
	} {
		long, err := LongDate(iso)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFormat, marker, err)
		}
		m[marker] = long
	}
	m["CIUDAD_FIRMA"] = p.Contrato.CiudadFirma

	m["ARRENDADOR_RAZON_SOCIAL"] = p.Arrendador.RazonSocial
	m["ARRENDADOR_RUT"] = p.Arrendador.RUT
	m["ARRENDADOR_DOMICILIO"] = p.Arrendador.Domicilio
	m["REPRESENTANTE_NOMBRE"] = p.Arrendador.RepresentanteNombre
	m["REPRESENTANTE_RUT"] = p.Arrendador.RepresentanteRUT
	m["BANCO"] = p.Arrendador.Banco
	m["TIPO_CUENTA"] = p.Arrendador.TipoCuenta
	m["NUMERO_CUENTA"] = p.Arrendador.NumeroCuenta

	addPerson(m, "PROPIETARIO", p.Propietario)
	addPerson(m, "ARRENDATARIO", p.Arrendatario)
	if p.Aval != nil {
		addPerson(m, "AVAL", *p.Aval)
	}

	m["PROPIEDAD_DIRECCION"] = p.Propiedad.Direccion
	m["PROPIEDAD_COMUNA"] = p.Propiedad.Comuna
	m["PROPIEDAD_CIUDAD"] = p.Propiedad.Ciudad
	m["UNIDAD"] = UnitLabel(p.Propiedad.TipoUnidad, p.Propiedad.NumeroUnidad)
	if p.Propiedad.Bodega != "" {
		m["BODEGA"] = p.Propiedad.Bodega
	}
	if p.Propiedad.Estacionamiento != "" {
		m["ESTACIONAMIENTO"] = p.Propiedad.Estacionamiento
	}
	if p.Propiedad.RolAvaluo != "" {
		m["ROL_AVALUO"] = p.Propiedad.RolAvaluo
	}

	m["RENTA_CLP"] = FormatCLP(p.Renta.MontoCLP)
	if p.Renta.MontoUF > 0 {
		m["RENTA_UF"] = FormatUF(p.Renta.MontoUF)
	}
	m["DIA_PAGO"] = strconv.Itoa(p.Renta.DiaPago)

	m["GARANTIA_TOTAL"] = FormatCLP(p.Garantia.MontoTotalCLP)
	m["GARANTIA_PAGO_INICIAL"] = FormatCLP(p.Garantia.PagoInicialCLP)
	m["NUM_CUOTAS"] = strconv.Itoa(len(p.Garantia.CuotasCLP))
	for i, cuota := range p.Garantia.CuotasCLP {
		m[fmt.Sprintf("CUOTA_%d_MONTO", i+1)] = FormatCLP(cuota)
	}

	m["DECLARACIONES"] = p.Declaraciones
	return m, nil
}

// LongDate renders an ISO date in long Chilean Spanish form,
// e.g. "2026-02-26" → "26 de febrero de 2026".
func LongDate(iso string) (string, error) {
	t, err := time.Parse(ISODate, iso)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()], t.Year()), nil
}

// FormatCLP renders a peso amount with thousands separators and no
// decimals: 1234567 → "$1.234.567".
func FormatCLP(amount int64) string {
	return clPrinter.Sprintf("$%v", number.Decimal(amount))
}

// FormatUF renders a UF amount with exactly two decimals: 85.5 → "UF 85,50".
func FormatUF(amount float64) string {
	return clPrinter.Sprintf("UF %v", number.Decimal(amount,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// UnitLabel synthesizes the display label for a unit from its raw type and
// number: ("departamento", "305") → "Departamento 305".
func UnitLabel(unitType, unitNumber string) string {
	unitType = strings.TrimSpace(unitType)
	if unitType == "" {
		unitType = "departamento"
	}
	r := []rune(unitType)
	r[0] = unicode.ToUpper(r[0])
	label := string(r)
	if n := strings.TrimSpace(unitNumber); n != "" {
		label += " " + n
	}
	return label
}

func addPerson(m map[string]string, prefix string, person Person) {
	m[prefix+"_NOMBRE"] = person.Nombre
	m[prefix+"_RUT"] = person.RUT
	m[prefix+"_DOMICILIO"] = person.Domicilio
	if person.Nacionalidad != "" {
		m[prefix+"_NACIONALIDAD"] = person.Nacionalidad
	}
	if person.EstadoCivil != "" {
		m[prefix+"_ESTADO_CIVIL"] = person.EstadoCivil
	}
	if person.Profesion != "" {
		m[prefix+"_PROFESION"] = person.Profesion
	}
	if person.Email != "" {
		m[prefix+"_EMAIL"] = person.Email
	}
}
