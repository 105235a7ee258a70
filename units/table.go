package units

import (
	"math"

	"gonum.org/v1/gonum/unit"
)

func dims(pairs ...interface{}) unit.Dimensions {
	d := make(unit.Dimensions)
	for i := 0; i < len(pairs); i += 2 {
		d[pairs[i].(unit.Dimension)] = pairs[i+1].(int)
	}
	return d
}

var (
	energyDims = dims(unit.MassDim, 1, unit.LengthDim, 2, unit.TimeDim, -2)
	chargeDims = dims(unit.CurrentDim, 1, unit.TimeDim, 1)
)

// Physical constants, exact SI values.
const (
	avogadro          = 6.02214076e23
	boltzmann         = 1.380649e-23
	elementaryCharge  = 1.602176634e-19
	atomicMassConst   = 1.66053906660e-27
	thermochemicalCal = 4.184
)

// Frequently used units.
var (
	Dimensionless = New("dimensionless", 1, nil)

	Meter     = New("m", 1, dims(unit.LengthDim, 1))
	Nanometer = New("nm", 1e-9, dims(unit.LengthDim, 1))
	Angstrom  = New("angstrom", 1e-10, dims(unit.LengthDim, 1))

	Kilogram = New("kg", 1, dims(unit.MassDim, 1))
	Gram     = New("g", 1e-3, dims(unit.MassDim, 1))
	AMU      = New("amu", atomicMassConst, dims(unit.MassDim, 1))

	Mol = New("mol", 1, dims(unit.MoleDim, 1))

	Joule  = New("J", 1, energyDims)
	KJ     = New("kJ", 1e3, energyDims)
	Cal    = New("cal", thermochemicalCal, energyDims)
	KCal   = New("kcal", thermochemicalCal*1e3, energyDims)
	EV     = New("eV", elementaryCharge, energyDims)
	Second = New("s", 1, dims(unit.TimeDim, 1))
	PS     = New("ps", 1e-12, dims(unit.TimeDim, 1))
	Kelvin = New("K", 1, dims(unit.TemperatureDim, 1))

	Coulomb          = New("coulomb", 1, chargeDims)
	ElementaryCharge = New("elementary_charge", elementaryCharge, chargeDims)

	Radian = New("rad", 1, dims(unit.AngleDim, 1))
	Degree = New("deg", math.Pi/180, dims(unit.AngleDim, 1))

	GramPerMol = Gram.Div(Mol).Rename("g/mol")
	KJPerMol   = KJ.Div(Mol).Rename("kJ/mol")
	KCalPerMol = KCal.Div(Mol).Rename("kcal/mol")
)

// known maps every symbol accepted by Parse to its unit.
var known = map[string]Unit{
	"dimensionless": Dimensionless,

	"m":        Meter,
	"cm":       New("cm", 1e-2, dims(unit.LengthDim, 1)),
	"mm":       New("mm", 1e-3, dims(unit.LengthDim, 1)),
	"um":       New("um", 1e-6, dims(unit.LengthDim, 1)),
	"nm":       Nanometer,
	"pm":       New("pm", 1e-12, dims(unit.LengthDim, 1)),
	"angstrom": Angstrom,
	"Å":        Angstrom.Rename("Å"),

	"kg":  Kilogram,
	"g":   Gram,
	"amu": AMU,
	"Da":  AMU.Rename("Da"),
	"u":   AMU.Rename("u"),

	"mol": Mol,

	"J":    Joule,
	"kJ":   KJ,
	"cal":  Cal,
	"kcal": KCal,
	"eV":   EV,
	"erg":  New("erg", 1e-7, energyDims),

	"C":                 Coulomb.Rename("C"),
	"coulomb":           Coulomb,
	"elementary_charge": ElementaryCharge,
	"e":                 ElementaryCharge.Rename("e"),
	"qp":                ElementaryCharge.Rename("qp"),

	"s":  Second,
	"ms": New("ms", 1e-3, dims(unit.TimeDim, 1)),
	"us": New("us", 1e-6, dims(unit.TimeDim, 1)),
	"ns": New("ns", 1e-9, dims(unit.TimeDim, 1)),
	"ps": PS,
	"fs": New("fs", 1e-15, dims(unit.TimeDim, 1)),

	"K": Kelvin,

	"A": New("A", 1, dims(unit.CurrentDim, 1)),

	"rad":    Radian,
	"radian": Radian.Rename("radian"),
	"deg":    Degree,
	"degree": Degree.Rename("degree"),

	"Na":                 New("Na", avogadro, dims(unit.MoleDim, -1)),
	"N_A":                New("N_A", avogadro, dims(unit.MoleDim, -1)),
	"avogadros_number":   New("avogadros_number", avogadro, dims(unit.MoleDim, -1)),
	"kb":                 Joule.Div(Kelvin).Rename("kb").scaled(boltzmann),
	"kboltz":             Joule.Div(Kelvin).Rename("kboltz").scaled(boltzmann),
	"boltzmann_constant": Joule.Div(Kelvin).Rename("boltzmann_constant").scaled(boltzmann),
}

func (U Unit) scaled(f float64) Unit {
	return New(U.symbol, U.Scale()*f, U.Dimensions())
}

// Lookup returns the unit named by symbol, if it is known.
func Lookup(symbol string) (Unit, bool) {
	u, ok := known[symbol]
	return u, ok
}
