// Package normalize maps heterogeneous drug-provider payloads onto the canonical DrugMetadata shape.
package normalize

import (
	"encoding/json"

	"github.com/antonholmquist/jason"

	"github.com/ppiankov/snapmed/internal/model"
)

// Default returns the all-sentinel record
func Default() model.DrugMetadata {
	return model.DrugMetadata{
		GenericName: model.Sentinel,
		DosageForm:  model.Sentinel,
		ProductType: model.Sentinel,
		Route:       []string{model.Sentinel},
	}
}

// Normalize maps a decoded provider value onto DrugMetadata.
// Arrays are reduced to their first element; objects are used as they are,
// so normalizing an already canonical record returns it unchanged.
func Normalize(v *jason.Value) model.DrugMetadata {
	if v == nil {
		return Default()
	}

	entry := v
	if items, err := v.Array(); err == nil {
		if len(items) == 0 {
			return Default()
		}
		entry = items[0]
	}

	obj, err := entry.Object()
	if err != nil {
		return Default()
	}

	return model.DrugMetadata{
		GenericName: stringField(obj, "generic_name"),
		DosageForm:  stringField(obj, "dosage_form"),
		ProductType: stringField(obj, "product_type"),
		Route:       routeField(obj),
	}
}

// NormalizeBytes decodes raw JSON and normalizes it. Undecodable input yields Default.
func NormalizeBytes(data []byte) model.DrugMetadata {
	v, err := jason.NewValueFromBytes(data)
	if err != nil {
		return Default()
	}
	return Normalize(v)
}

// NormalizeMap normalizes a generic decoded object such as a request body field
func NormalizeMap(m map[string]any) model.DrugMetadata {
	if m == nil {
		return Default()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return Default()
	}
	return NormalizeBytes(data)
}

// Complete fills the unset fields of an existing record with sentinels.
// A nil record becomes Default.
func Complete(d *model.DrugMetadata) model.DrugMetadata {
	if d == nil {
		return Default()
	}
	out := model.DrugMetadata{
		GenericName: orSentinel(d.GenericName),
		DosageForm:  orSentinel(d.DosageForm),
		ProductType: orSentinel(d.ProductType),
		Route:       append([]string(nil), d.Route...),
	}
	if d.Route == nil {
		out.Route = []string{model.Sentinel}
	}
	return out
}

func stringField(obj *jason.Object, key string) string {
	s, err := obj.GetString(key)
	if err != nil {
		return model.Sentinel
	}
	return orSentinel(s)
}

// routeField keeps string elements only. An empty array stays empty.
func routeField(obj *jason.Object) []string {
	raw, err := obj.GetValue("route")
	if err != nil {
		return []string{model.Sentinel}
	}
	values, err := raw.Array()
	if err != nil {
		return []string{model.Sentinel}
	}
	route := make([]string, 0, len(values))
	for _, v := range values {
		if s, err := v.String(); err == nil {
			route = append(route, s)
		}
	}
	return route
}

func orSentinel(s string) string {
	if s == "" {
		return model.Sentinel
	}
	return s
}
