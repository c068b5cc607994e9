package conciliacion

import "github.com/shopspring/decimal"

// Tara holds the tare constants used to convert gross and net weights.
type Tara struct {
	Bandeja decimal.Decimal
	Pallet  decimal.Decimal
}

// TaraEstandar returns the plant defaults: 0.32 kg per tray, 20 kg per pallet.
func TaraEstandar() Tara {
	return Tara{
		Bandeja: decimal.RequireFromString("0.32"),
		Pallet:  decimal.NewFromInt(20),
	}
}

// PesoNeto = max(0, bruto − bandejas·Bandeja − Pallet)
func (t Tara) PesoNeto(bruto decimal.Decimal, bandejas int) decimal.Decimal {
	neto := bruto.Sub(t.taraTotal(bandejas))
	if neto.IsNegative() {
		return decimal.Zero
	}
	return neto
}

// PesoBruto = neto + bandejas·Bandeja + Pallet
func (t Tara) PesoBruto(neto decimal.Decimal, bandejas int) decimal.Decimal {
	return neto.Add(t.taraTotal(bandejas))
}

func (t Tara) taraTotal(bandejas int) decimal.Decimal {
	return t.Bandeja.Mul(decimal.NewFromInt(int64(bandejas))).Add(t.Pallet)
}
