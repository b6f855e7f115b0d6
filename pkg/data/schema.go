package data

import "strings"

// Output columns appended to every scored table.
const (
	ProbabilityColumn = "churn_probability"
	SegmentColumn     = "risk_segment"
)

// Schema describes the structure of a customer table.
type Schema struct {
	Numeric     []string `yaml:"numeric"`
	Categorical []string `yaml:"categorical"`
	Label       string   `yaml:"label"`
}

// DefaultSchema is the e-commerce churn dataset layout.
func DefaultSchema() Schema {
	return Schema{
		Numeric: []string{
			"Tenure",
			"WarehouseToHome",
			"NumberOfDeviceRegistered",
			"SatisfactionScore",
			"NumberOfAddress",
			"Complain",
			"DaySinceLastOrder",
			"CashbackAmount",
		},
		Categorical: []string{"PreferedOrderCat", "MaritalStatus"},
		Label:       "Churn",
	}
}

// Required lists every column the schema needs, label last.
func (s Schema) Required() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical)+1)
	out = append(out, s.Numeric...)
	out = append(out, s.Categorical...)
	if s.Label != "" {
		out = append(out, s.Label)
	}
	return out
}

// Features lists numeric then categorical columns.
func (s Schema) Features() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	out = append(out, s.Numeric...)
	return append(out, s.Categorical...)
}

// headerAliases maps the Spanish headers of the translated dataset
// onto the canonical English names.
var headerAliases = map[string]string{
	"Antiguedad":          "Tenure",
	"Distancia_Almacen":   "WarehouseToHome",
	"Numero_Dispositivos": "NumberOfDeviceRegistered",
	"Categoria_Preferida": "PreferedOrderCat",
	"Nivel_Satisfaccion":  "SatisfactionScore",
	"Estado_Civil":        "MaritalStatus",
	"Numero_Direcciones":  "NumberOfAddress",
	"Queja":               "Complain",
	"Dias_Ultima_Compra":  "DaySinceLastOrder",
	"Monto_Cashback":      "CashbackAmount",
	"Target":              "Churn",
	"Probabilidad_Churn":  ProbabilityColumn,
	"Segmento_Riesgo":     SegmentColumn,
}

// CanonicalName trims a header and resolves known aliases.
func CanonicalName(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	if c, ok := headerAliases[h]; ok {
		return c
	}
	return h
}

// IsMissing reports whether a raw cell holds one of the missing-value markers.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NA", "NaN", "nan", "null", "NULL":
		return true
	}
	return false
}
