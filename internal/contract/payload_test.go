package contract

import (
	"testing"
	"time"
)

// validPayload returns a payload that passes every business rule. Tests
// mutate individual fields to drive specific violations.
func validPayload() Payload {
	return Payload{
		Contrato: Metadata{
			CiudadFirma: "Santiago",
			FechaFirma:  "2026-02-20",
			FechaInicio: "2026-03-01",
		},
		Arrendador: Lessor{
			RazonSocial:         "Arriendo Fácil SpA",
			RUT:                 "76.123.456-0",
			RepresentanteNombre: "Carla Soto",
			RepresentanteRUT:    "12.345.678-5",
			Domicilio:           "Av. Apoquindo 1234, Las Condes",
			Banco:               "Banco de Chile",
			TipoCuenta:          "cuenta corriente",
			NumeroCuenta:        "001-23456-78",
		},
		Propietario: Person{
			Nombre:    "Pedro Rojas",
			RUT:       "9.876.543-3",
			Domicilio: "Los Leones 55, Providencia",
		},
		Arrendatario: Person{
			Nombre:       "María José Pérez",
			RUT:          "20.347.878-K",
			Nacionalidad: "chilena",
			EstadoCivil:  "soltera",
			Profesion:    "ingeniera",
			Domicilio:    "Merced 800, Santiago",
			Email:        "mj.perez@example.cl",
		},
		Propiedad: Property{
			Direccion:    "Av. Italia 950",
			Comuna:       "Ñuñoa",
			Ciudad:       "Santiago",
			NumeroUnidad: "305",
		},
		Renta: Rent{
			MontoCLP: 650000,
			MontoUF:  17.25,
			DiaPago:  5,
		},
		Garantia: Guarantee{
			MontoTotalCLP:  650000,
			PagoInicialCLP: 350000,
			CuotasCLP:      []int64{150000, 150000},
		},
	}
}

func TestApplyDefaults(t *testing.T) {
	now := time.Date(2026, 2, 20, 15, 4, 5, 0, time.UTC)

	t.Run("fills missing fields", func(t *testing.T) {
		p := validPayload()
		p.Contrato.FechaFirma = ""
		p.Contrato.FechaTermino = ""
		p.Propiedad.TipoUnidad = ""

		p.ApplyDefaults(now)

		if p.Contrato.FechaFirma != "2026-02-20" {
			t.Fatalf("fecha_firma = %q, want today", p.Contrato.FechaFirma)
		}
		if p.Contrato.FechaTermino != "2027-03-01" {
			t.Fatalf("fecha_termino = %q, want start+1y", p.Contrato.FechaTermino)
		}
		if p.Propiedad.TipoUnidad != "departamento" {
			t.Fatalf("tipo_unidad = %q", p.Propiedad.TipoUnidad)
		}
	})

	t.Run("leaves provided values alone", func(t *testing.T) {
		p := validPayload()
		p.Contrato.FechaTermino = "2026-09-01"
		p.Propiedad.TipoUnidad = "casa"

		p.ApplyDefaults(now)

		if p.Contrato.FechaFirma != "2026-02-20" || p.Contrato.FechaTermino != "2026-09-01" {
			t.Fatalf("dates changed: %+v", p.Contrato)
		}
		if p.Propiedad.TipoUnidad != "casa" {
			t.Fatalf("tipo_unidad overwritten: %q", p.Propiedad.TipoUnidad)
		}
	})

	t.Run("bad start date leaves termino empty", func(t *testing.T) {
		p := validPayload()
		p.Contrato.FechaInicio = "01-03-2026"
		p.Contrato.FechaTermino = ""
		p.ApplyDefaults(now)
		if p.Contrato.FechaTermino != "" {
			t.Fatalf("expected empty fecha_termino, got %q", p.Contrato.FechaTermino)
		}
	})
}

func TestNormalize(t *testing.T) {
	p := validPayload()
	p.Arrendatario.Nombre = "  María   José\tPérez "
	// decomposed é (e + combining acute) must compose to the same bytes
	p.Propietario.Nombre = "Pérez"
	p.Arrendatario.RUT = "20347878k"
	p.Declaraciones = "sin   observaciones"

	n := p.Normalize()

	if n.Arrendatario.Nombre != "María José Pérez" {
		t.Fatalf("whitespace not collapsed: %q", n.Arrendatario.Nombre)
	}
	if n.Propietario.Nombre != "Pérez" {
		t.Fatalf("NFC not applied: %q", n.Propietario.Nombre)
	}
	if n.Arrendatario.RUT != "20347878-K" {
		t.Fatalf("rut not canonical: %q", n.Arrendatario.RUT)
	}
	if n.Declaraciones != "sin observaciones" {
		t.Fatalf("declaraciones: %q", n.Declaraciones)
	}

	// value semantics: the original payload is untouched
	if p.Arrendatario.Nombre != "  María   José\tPérez " {
		t.Fatalf("Normalize mutated its receiver")
	}
}

func TestNormalize_DeclaracionesKeepsParagraphs(t *testing.T) {
	p := validPayload()
	p.Declaraciones = "El inmueble  se entrega pintado.\r\n\r\n\r\nEl arrendatario   declara conocerlo.\n\n"

	n := p.Normalize()

	want := "El inmueble se entrega pintado.\n\nEl arrendatario declara conocerlo."
	if n.Declaraciones != want {
		t.Fatalf("declaraciones = %q, want %q", n.Declaraciones, want)
	}

	// Spaces are surface detail, paragraph breaks are data: the hash must
	// ignore the former and see the latter.
	spaced := validPayload()
	spaced.Declaraciones = "El inmueble se  entrega   pintado.\n\nEl arrendatario declara conocerlo."
	merged := validPayload()
	merged.Declaraciones = "El inmueble se entrega pintado. El arrendatario declara conocerlo."

	h1, err := ContentHash("t1", "1.0.0", p.Normalize())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := ContentHash("t1", "1.0.0", spaced.Normalize())
	if err != nil {
		t.Fatalf("hash spaced: %v", err)
	}
	h3, err := ContentHash("t1", "1.0.0", merged.Normalize())
	if err != nil {
		t.Fatalf("hash merged: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("spacing changed the hash")
	}
	if h1 == h3 {
		t.Fatalf("dropping a paragraph break must change the hash")
	}
}

func TestNormalize_InvalidRUTLeftForValidator(t *testing.T) {
	p := validPayload()
	p.Arrendatario.RUT = " 12345678-9 " // bad checksum
	n := p.Normalize()
	if n.Arrendatario.RUT != "12345678-9" {
		t.Fatalf("invalid rut should only be trimmed, got %q", n.Arrendatario.RUT)
	}
}

func TestNormalize_CopiesGuarantorAndInstallments(t *testing.T) {
	p := validPayload()
	aval := Person{Nombre: "Juan  Díaz", RUT: "12.345.678-5", Domicilio: "Calle 1"}
	p.Aval = &aval
	p.Condiciones.HayAval = true

	n := p.Normalize()

	if n.Aval == &aval {
		t.Fatalf("guarantor must be copied, not aliased")
	}
	if n.Aval.Nombre != "Juan Díaz" {
		t.Fatalf("guarantor not normalized: %q", n.Aval.Nombre)
	}
	n.Garantia.CuotasCLP[0] = 999
	if p.Garantia.CuotasCLP[0] == 999 {
		t.Fatalf("installment slice must be copied, not aliased")
	}
}

func TestFlagValues(t *testing.T) {
	p := validPayload()
	p.Condiciones = Flags{HayAval: true, Amoblado: true}
	got := p.FlagValues()
	want := map[string]bool{"AVAL": true, "MASCOTAS": false, "AMOBLADO": true}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("flag %s = %v, want %v", k, got[k], v)
		}
	}
}
