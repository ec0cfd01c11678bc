package encoding

// LegendEntry describes one colour bucket of the discrete encoding.
type LegendEntry struct {
	Value   uint8
	R, G, B uint8
	Alpha   float64
	Visible bool
	Label   string
}

// Legend is the fixed bucket table for the discrete encoding, from
// background to maximum uncertainty.
var Legend = []LegendEntry{
	{Value: 0, R: 0, G: 0, B: 0, Alpha: 0, Visible: false, Label: "Background"},
	{Value: 25, R: 0, G: 0, B: 255, Alpha: 0.7, Visible: true, Label: "Very Low Uncertainty"},
	{Value: 51, R: 0, G: 100, B: 255, Alpha: 0.7, Visible: true, Label: "Low Uncertainty"},
	{Value: 76, R: 0, G: 180, B: 200, Alpha: 0.7, Visible: true, Label: "Low-Med Uncertainty"},
	{Value: 102, R: 0, G: 255, B: 125, Alpha: 0.7, Visible: true, Label: "Med Uncertainty"},
	{Value: 127, R: 125, G: 255, B: 0, Alpha: 0.7, Visible: true, Label: "Med-High Uncertainty"},
	{Value: 153, R: 200, G: 180, B: 0, Alpha: 0.7, Visible: true, Label: "High Uncertainty"},
	{Value: 178, R: 255, G: 100, B: 0, Alpha: 0.7, Visible: true, Label: "Higher Uncertainty"},
	{Value: 204, R: 255, G: 50, B: 0, Alpha: 0.7, Visible: true, Label: "Very High Uncertainty"},
	{Value: 229, R: 255, G: 25, B: 0, Alpha: 0.7, Visible: true, Label: "Extreme Uncertainty"},
	{Value: 255, R: 255, G: 0, B: 0, Alpha: 0.7, Visible: true, Label: "Maximum Uncertainty"},
}

// LegendFor returns the entry of the highest bucket not above v.
func LegendFor(v uint8) LegendEntry {
	entry := Legend[0]
	for _, e := range Legend {
		if e.Value > v {
			break
		}
		entry = e
	}
	return entry
}
