// Package validate checks request payloads before they reach the pipeline or the store.
package validate

import (
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/ppiankov/snapmed/internal/apperr"
	"github.com/ppiankov/snapmed/internal/model"
	"github.com/ppiankov/snapmed/internal/normalize"
)

// Validation messages returned to callers
const (
	MsgLinesRequired  = "Invalid medication data: lines array is required"
	MsgLinesStrings   = "Invalid medication data: lines must be strings"
	MsgDrugInfoObject = "Drug info must be an object"
	MsgRouteArray     = "Route must be an array"
	MsgNoImage        = "No base64 image provided."
)

// HistoryPayload is a validated history write
type HistoryPayload struct {
	Lines []string
	// DrugInfo is nil when the caller sent none
	DrugInfo *model.DrugMetadata
}

// HistoryRequest validates a {lines, drugInfo?} body.
// lines must be an array of strings with at least one non-blank entry; blank entries
// are dropped and the rest trimmed. drugInfo, when present and not null, must be an
// object whose route, if present, is an array of strings.
func HistoryRequest(body []byte) (HistoryPayload, error) {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return HistoryPayload{}, apperr.InvalidInput(MsgLinesRequired)
	}

	lines, err := readLines(obj)
	if err != nil {
		return HistoryPayload{}, err
	}

	payload := HistoryPayload{Lines: lines}

	v, err := obj.GetValue("drugInfo")
	if err != nil || isNull(v) {
		return payload, nil
	}

	info, err := v.Object()
	if err != nil {
		return HistoryPayload{}, apperr.InvalidInput(MsgDrugInfoObject)
	}
	if _, err := info.GetValue("route"); err == nil {
		if _, err := info.GetStringArray("route"); err != nil {
			return HistoryPayload{}, apperr.InvalidInput(MsgRouteArray)
		}
	}

	md := normalize.Normalize(v)
	payload.DrugInfo = &md
	return payload, nil
}

// ImageRequest extracts the image field of an {image} body
func ImageRequest(body []byte) (string, error) {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return "", apperr.InvalidInput(MsgNoImage)
	}
	image, err := obj.GetString("image")
	if err != nil || strings.TrimSpace(image) == "" {
		return "", apperr.InvalidInput(MsgNoImage)
	}
	return image, nil
}

func readLines(obj *jason.Object) ([]string, error) {
	v, err := obj.GetValue("lines")
	if err != nil {
		return nil, apperr.InvalidInput(MsgLinesRequired)
	}
	items, err := v.Array()
	if err != nil || len(items) == 0 {
		return nil, apperr.InvalidInput(MsgLinesRequired)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := item.String()
		if err != nil {
			return nil, apperr.InvalidInput(MsgLinesStrings)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, apperr.InvalidInput(MsgLinesRequired)
	}
	return out, nil
}

func isNull(v *jason.Value) bool {
	return v.Null() == nil
}
