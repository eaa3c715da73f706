package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Report Viewer API", doc.Info.Title)
	assert.NotNil(t, doc.Paths.Find("/sessions/{sid}/actions"))
}

func TestValidateBody(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		schema  string
		body    string
		wantErr error
	}{
		{name: "valid create", schema: "ReportViewerCreate", body: `{"reportViewer_title": "Sales"}`},
		{name: "missing title", schema: "ReportViewerCreate", body: `{"css": ""}`, wantErr: ErrInvalidBody},
		{name: "wrong type", schema: "ReportViewerPatch", body: `{"published": "yes"}`, wantErr: ErrInvalidBody},
		{name: "empty patch", schema: "ReportViewerPatch", body: `{}`, wantErr: ErrInvalidBody},
		{name: "not json", schema: "Action", body: `{`, wantErr: ErrInvalidBody},
		{name: "action", schema: "Action", body: `{"type": "UNDO"}`},
		{name: "save type enum", schema: "SaveRequest", body: `{"type": "later"}`, wantErr: ErrInvalidBody},
		{name: "empty optional body", schema: "SessionOpen", body: ``},
		{name: "unknown schema", schema: "Nope", body: `{}`, wantErr: ErrUnknownSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBody(tt.schema, []byte(tt.body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}
