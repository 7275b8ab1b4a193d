package render

import "testing"

func TestSubstitute(t *testing.T) {
	placeholders := map[string]string{
		"ARRENDATARIO_NOMBRE": "María José Pérez",
		"RENTA_CLP":           "$650.000",
		"VACIO":               "",
	}

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "known markers replaced",
			in:   "Comparece [[ARRENDATARIO_NOMBRE]], renta [[RENTA_CLP]].",
			want: "Comparece María José Pérez, renta $650.000.",
		},
		{
			name: "unknown marker left intact",
			in:   "rol [[ROL_AVALUO]] fin",
			want: "rol [[ROL_AVALUO]] fin",
		},
		{
			name: "empty value is a legitimate blank",
			in:   "x[[VACIO]]y",
			want: "xy",
		},
		{
			name: "repeated marker replaced everywhere",
			in:   "[[RENTA_CLP]] y otra vez [[RENTA_CLP]]",
			want: "$650.000 y otra vez $650.000",
		},
		{
			name: "unclosed brackets copied through",
			in:   "texto [[sin cierre",
			want: "texto [[sin cierre",
		},
		{
			name: "no markers",
			in:   "sin marcadores",
			want: "sin marcadores",
		},
		{
			name: "adjacent markers",
			in:   "[[RENTA_CLP]][[ARRENDATARIO_NOMBRE]]",
			want: "$650.000María José Pérez",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Substitute(tc.in, placeholders); got != tc.want {
				t.Fatalf("Substitute(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
