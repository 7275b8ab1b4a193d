// Package contract holds the lease-contract payload model and the pure
// computations performed on it: default filling, normalization, business
// rule validation, placeholder building, and canonical content hashing.
//
// The payload is a value type. Handlers decode it once, the service applies
// defaults and normalization, and from that point on nothing mutates it.
// JSON tags follow the Spanish field names used by the template authors and
// the web frontend.
package contract

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/arriendofacil/go-contract-backend/internal/rut"
)

// ISODate is the wire format for all payload dates.
const ISODate = "2006-01-02"

// Metadata groups contract-level facts: where the contract is signed and
// the lease period.
type Metadata struct {
	CiudadFirma  string `json:"ciudad_firma"`
	FechaFirma   string `json:"fecha_firma,omitempty"`
	FechaInicio  string `json:"fecha_inicio"`
	FechaTermino string `json:"fecha_termino,omitempty"`
}

// Lessor is the leasing company: legal name, representation, and the bank
// account rent is paid into.
type Lessor struct {
	RazonSocial         string `json:"razon_social"`
	RUT                 string `json:"rut"`
	RepresentanteNombre string `json:"representante_nombre"`
	RepresentanteRUT    string `json:"representante_rut"`
	Domicilio           string `json:"domicilio"`
	Banco               string `json:"banco"`
	TipoCuenta          string `json:"tipo_cuenta"`
	NumeroCuenta        string `json:"numero_cuenta"`
}

// Person is a natural person appearing in the contract: the property owner,
// the lessee, or the optional guarantor.
type Person struct {
	Nombre       string `json:"nombre"`
	RUT          string `json:"rut"`
	Nacionalidad string `json:"nacionalidad,omitempty"`
	EstadoCivil  string `json:"estado_civil,omitempty"`
	Profesion    string `json:"profesion,omitempty"`
	Domicilio    string `json:"domicilio"`
	Email        string `json:"email,omitempty"`
}

// Property describes the leased unit.
type Property struct {
	Direccion       string `json:"direccion"`
	Comuna          string `json:"comuna"`
	Ciudad          string `json:"ciudad"`
	TipoUnidad      string `json:"tipo_unidad,omitempty"` // defaults to "departamento"
	NumeroUnidad    string `json:"numero_unidad"`
	Bodega          string `json:"bodega,omitempty"`
	Estacionamiento string `json:"estacionamiento,omitempty"`
	RolAvaluo       string `json:"rol_avaluo,omitempty"`
}

// Rent holds the monthly rent in pesos, its UF-indexed equivalent, and the
// day of month payment is due.
type Rent struct {
	MontoCLP int64   `json:"monto_clp"`
	MontoUF  float64 `json:"monto_uf,omitempty"`
	DiaPago  int     `json:"dia_pago"`
}

// Guarantee holds the security deposit: a total, an up-front payment, and
// any remaining installments.
type Guarantee struct {
	MontoTotalCLP  int64   `json:"monto_total_clp"`
	PagoInicialCLP int64   `json:"pago_inicial_clp"`
	CuotasCLP      []int64 `json:"cuotas_clp,omitempty"`
}

// Flags are the boolean switches that drive conditional template blocks.
type Flags struct {
	HayAval         bool `json:"hay_aval"`
	PermiteMascotas bool `json:"permite_mascotas"`
	Amoblado        bool `json:"amoblado"`
}

// Payload is the full structured input for one contract issuance.
type Payload struct {
	Contrato      Metadata  `json:"contrato"`
	Arrendador    Lessor    `json:"arrendador"`
	Propietario   Person    `json:"propietario"`
	Arrendatario  Person    `json:"arrendatario"`
	Aval          *Person   `json:"aval,omitempty"`
	Propiedad     Property  `json:"propiedad"`
	Renta         Rent      `json:"renta"`
	Garantia      Guarantee `json:"garantia"`
	Condiciones   Flags     `json:"condiciones"`
	Declaraciones string    `json:"declaraciones,omitempty"`
}

// ApplyDefaults fills optional fields before validation: a missing signing
// date becomes now (UTC, date only), a missing end date becomes the start
// date plus one year, and the unit type defaults to "departamento". An
// unparseable start date is left alone for the validator to report.
func (p *Payload) ApplyDefaults(now time.Time) {
	if p.Contrato.FechaFirma == "" {
		p.Contrato.FechaFirma = now.UTC().Format(ISODate)
	}
	if p.Contrato.FechaTermino == "" && p.Contrato.FechaInicio != "" {
		if start, err := time.Parse(ISODate, p.Contrato.FechaInicio); err == nil {
			p.Contrato.FechaTermino = start.AddDate(1, 0, 0).Format(ISODate)
		}
	}
	if p.Propiedad.TipoUnidad == "" {
		p.Propiedad.TipoUnidad = "departamento"
	}
}

// Normalize returns a copy of the payload with every free-text field in
// Unicode NFC with collapsed whitespace, and every valid RUT replaced by
// its canonical form. Two payloads that differ only in such insignificant
// surface detail normalize to identical values, which is what makes the
// content hash a usable idempotency key.
func (p Payload) Normalize() Payload {
	out := p

	out.Contrato.CiudadFirma = cleanText(p.Contrato.CiudadFirma)

	out.Arrendador.RazonSocial = cleanText(p.Arrendador.RazonSocial)
	out.Arrendador.RUT = canonicalRUT(p.Arrendador.RUT)
	out.Arrendador.RepresentanteNombre = cleanText(p.Arrendador.RepresentanteNombre)
	out.Arrendador.RepresentanteRUT = canonicalRUT(p.Arrendador.RepresentanteRUT)
	out.Arrendador.Domicilio = cleanText(p.Arrendador.Domicilio)
	out.Arrendador.Banco = cleanText(p.Arrendador.Banco)
	out.Arrendador.TipoCuenta = cleanText(p.Arrendador.TipoCuenta)
	out.Arrendador.NumeroCuenta = cleanText(p.Arrendador.NumeroCuenta)

	out.Propietario = normalizePerson(p.Propietario)
	out.Arrendatario = normalizePerson(p.Arrendatario)
	if p.Aval != nil {
		av := normalizePerson(*p.Aval)
		out.Aval = &av
	}

	out.Propiedad.Direccion = cleanText(p.Propiedad.Direccion)
	out.Propiedad.Comuna = cleanText(p.Propiedad.Comuna)
	out.Propiedad.Ciudad = cleanText(p.Propiedad.Ciudad)
	out.Propiedad.TipoUnidad = cleanText(p.Propiedad.TipoUnidad)
	out.Propiedad.NumeroUnidad = cleanText(p.Propiedad.NumeroUnidad)
	out.Propiedad.Bodega = cleanText(p.Propiedad.Bodega)
	out.Propiedad.Estacionamiento = cleanText(p.Propiedad.Estacionamiento)
	out.Propiedad.RolAvaluo = cleanText(p.Propiedad.RolAvaluo)

	if p.Garantia.CuotasCLP != nil {
		out.Garantia.CuotasCLP = append([]int64(nil), p.Garantia.CuotasCLP...)
	}

	out.Declaraciones = cleanBlock(p.Declaraciones)
	return out
}

// FlagValues exposes the boolean switches under the names used by template
// conditional markers ([[IF.AVAL]], [[IF.MASCOTAS]], [[IF.AMOBLADO]]).
func (p *Payload) FlagValues() map[string]bool {
	return map[string]bool{
		"AVAL":     p.Condiciones.HayAval,
		"MASCOTAS": p.Condiciones.PermiteMascotas,
		"AMOBLADO": p.Condiciones.Amoblado,
	}
}

func normalizePerson(in Person) Person {
	return Person{
		Nombre:       cleanText(in.Nombre),
		RUT:          canonicalRUT(in.RUT),
		Nacionalidad: cleanText(in.Nacionalidad),
		EstadoCivil:  cleanText(in.EstadoCivil),
		Profesion:    cleanText(in.Profesion),
		Domicilio:    cleanText(in.Domicilio),
		Email:        strings.TrimSpace(in.Email),
	}
}

// cleanText applies NFC composition and collapses runs of whitespace to a
// single space. Composed form guarantees accented characters survive the
// byte-level marker substitution downstream.
func cleanText(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// cleanBlock normalizes multi-line free text (declaraciones): NFC, horizontal
// whitespace collapsed within each line, runs of blank lines collapsed to one.
// Newlines are kept so paragraph breaks survive into the rendered document;
// a paragraph break is meaningful data, not surface detail.
func cleanBlock(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var out []string
	blank := false
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.Join(strings.Fields(ln), " ")
		if ln == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}

// canonicalRUT rewrites valid RUTs in canonical form and leaves invalid
// ones untouched so the validator can still report them.
func canonicalRUT(s string) string {
	if n, err := rut.Normalize(s); err == nil {
		return n
	}
	return strings.TrimSpace(s)
}
