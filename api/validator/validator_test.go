package validator

import (
	"testing"
)

type testPost struct {
	MediaURL  string `validate:"required,url"`
	MediaType string `validate:"required,oneof=image video"`
	Caption   string `validate:"max=10"`
}

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   interface{}
		wantErr bool
		fields  []string
	}{
		{
			name: "Valid struct",
			input: testPost{
				MediaURL:  "https://cdn.example.com/a.jpg",
				MediaType: "image",
				Caption:   "hi",
			},
			wantErr: false,
		},
		{
			name: "Missing required fields",
			input: testPost{
				Caption: "hi",
			},
			wantErr: true,
			fields:  []string{"MediaURL", "MediaType"},
		},
		{
			name: "Unknown media type",
			input: testPost{
				MediaURL:  "https://cdn.example.com/a.jpg",
				MediaType: "audio",
			},
			wantErr: true,
			fields:  []string{"MediaType"},
		},
		{
			name: "Caption too long",
			input: testPost{
				MediaURL:  "https://cdn.example.com/a.jpg",
				MediaType: "video",
				Caption:   "this caption is too long",
			},
			wantErr: true,
			fields:  []string{"Caption"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := v.ValidateStruct(tt.input)

			if tt.wantErr && len(errors) == 0 {
				t.Error("ValidateStruct() expected errors but got none")
				return
			}
			if !tt.wantErr && len(errors) > 0 {
				t.Errorf("ValidateStruct() got unexpected errors: %v", errors)
				return
			}

			for _, wantField := range tt.fields {
				found := false
				for _, err := range errors {
					if err.Field == wantField {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Expected validation error for field %s, but got none", wantField)
				}
			}
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		value   interface{}
		tag     string
		wantErr bool
	}{
		{
			name:    "Valid URL",
			value:   "https://cdn.example.com/a.jpg",
			tag:     "url",
			wantErr: false,
		},
		{
			name:    "Invalid URL",
			value:   "not a url",
			tag:     "url",
			wantErr: true,
		},
		{
			name:    "Required value present",
			value:   "value",
			tag:     "required",
			wantErr: false,
		},
		{
			name:    "Required value empty",
			value:   "",
			tag:     "required",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := v.Validate(tt.value, tt.tag)

			if tt.wantErr && len(errors) == 0 {
				t.Error("Validate() expected errors but got none")
			}
			if !tt.wantErr && len(errors) > 0 {
				t.Errorf("Validate() got unexpected errors: %v", errors)
			}
		})
	}
}

func TestNew(t *testing.T) {
	v := New()
	if v == nil || v.cli == nil {
		t.Error("New() returned invalid validator")
	}
}
