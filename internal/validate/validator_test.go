package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/snapmed/internal/apperr"
	"github.com/ppiankov/snapmed/internal/model"
)

func TestHistoryRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   string
		wantLines []string
		wantInfo  *model.DrugMetadata
	}{
		{
			name:      "lines only",
			body:      `{"lines":["Aspirin","81 mg"]}`,
			wantLines: []string{"Aspirin", "81 mg"},
		},
		{
			name:      "null drug info",
			body:      `{"lines":["Aspirin"],"drugInfo":null}`,
			wantLines: []string{"Aspirin"},
		},
		{
			name:      "full drug info",
			body:      `{"lines":["Advil"],"drugInfo":{"generic_name":"ibuprofen","dosage_form":"TABLET","product_type":"HUMAN OTC DRUG","route":["ORAL"]}}`,
			wantLines: []string{"Advil"},
			wantInfo:  &model.DrugMetadata{GenericName: "ibuprofen", DosageForm: "TABLET", ProductType: "HUMAN OTC DRUG", Route: []string{"ORAL"}},
		},
		{
			name:      "partial drug info gets sentinels",
			body:      `{"lines":["Advil"],"drugInfo":{"generic_name":"ibuprofen"}}`,
			wantLines: []string{"Advil"},
			wantInfo:  &model.DrugMetadata{GenericName: "ibuprofen", DosageForm: "N/A", ProductType: "N/A", Route: []string{"N/A"}},
		},
		{
			name:      "blank lines dropped",
			body:      `{"lines":["", " Aspirin ", "  ", "81 mg"]}`,
			wantLines: []string{"Aspirin", "81 mg"},
		},
		{
			name:      "empty route kept",
			body:      `{"lines":["Advil"],"drugInfo":{"generic_name":"ibuprofen","route":[]}}`,
			wantLines: []string{"Advil"},
			wantInfo:  &model.DrugMetadata{GenericName: "ibuprofen", DosageForm: "N/A", ProductType: "N/A", Route: []string{}},
		},
		{name: "missing lines", body: `{"drugInfo":{}}`, wantErr: MsgLinesRequired},
		{name: "only blank lines", body: `{"lines":[""," "]}`, wantErr: MsgLinesRequired},
		{name: "empty lines", body: `{"lines":[]}`, wantErr: MsgLinesRequired},
		{name: "lines not array", body: `{"lines":"Aspirin"}`, wantErr: MsgLinesRequired},
		{name: "non-string line", body: `{"lines":["Aspirin",5]}`, wantErr: MsgLinesStrings},
		{name: "drug info not object", body: `{"lines":["a"],"drugInfo":"ibuprofen"}`, wantErr: MsgDrugInfoObject},
		{name: "route not array", body: `{"lines":["a"],"drugInfo":{"route":"ORAL"}}`, wantErr: MsgRouteArray},
		{name: "non-string route element", body: `{"lines":["a"],"drugInfo":{"route":["ORAL",1]}}`, wantErr: MsgRouteArray},
		{name: "not json", body: `lines=a`, wantErr: MsgLinesRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := HistoryRequest([]byte(tt.body))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
				assert.Equal(t, tt.wantErr, apperr.MessageOf(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLines, payload.Lines)
			assert.Equal(t, tt.wantInfo, payload.DrugInfo)
		})
	}
}

func TestImageRequest(t *testing.T) {
	image, err := ImageRequest([]byte(`{"image":"data:image/png;base64,AAAA"}`))
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", image)

	for _, body := range []string{`{}`, `{"image":""}`, `{"image":"   "}`, `{"image":42}`, `not json`} {
		_, err := ImageRequest([]byte(body))
		require.Error(t, err, body)
		assert.Equal(t, MsgNoImage, apperr.MessageOf(err))
	}
}
