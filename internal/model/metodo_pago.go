package model

import "strings"

// MetodoPago is the closed set of payment methods the register totals by.
type MetodoPago string

const (
	MetodoEfectivo MetodoPago = "efectivo"
	MetodoQR       MetodoPago = "qr"
	MetodoTarjeta  MetodoPago = "tarjeta"
	// MetodoOtro is stored for names that match none of the above; it never
	// counts towards a register total.
	MetodoOtro MetodoPago = "otro"
)

var metodoKeywords = []struct {
	metodo   MetodoPago
	keywords []string
}{
	{MetodoEfectivo, []string{"efectivo", "cash"}},
	{MetodoQR, []string{"qr", "billetera", "wallet"}},
	{MetodoTarjeta, []string{"tarjeta", "card", "debito", "débito", "credito", "crédito"}},
}

// ParseMetodoPago classifies a free-text payment method name by
// case-insensitive substring match. It exists for legacy data that stored
// names such as "Pago en Efectivo"; ok is false when nothing matches.
func ParseMetodoPago(nombre string) (metodo MetodoPago, ok bool) {
	n := strings.ToLower(strings.TrimSpace(nombre))
	if n == "" {
		return MetodoOtro, false
	}
	for _, m := range metodoKeywords {
		for _, kw := range m.keywords {
			if strings.Contains(n, kw) {
				return m.metodo, true
			}
		}
	}
	return MetodoOtro, false
}
