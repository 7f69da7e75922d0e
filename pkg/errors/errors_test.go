package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestValidationErrorIs(t *testing.T) {
	err := NewValidationError("resolution", -0.5, "must be positive")
	if !stderrors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should return true")
	}
	if !strings.Contains(err.Error(), "resolution") {
		t.Errorf("error message should name the field, got %q", err.Error())
	}
}

func TestTypeConformanceError(t *testing.T) {
	err := NewTypeConformanceError("CCI_BIOMASS", "nil")
	if !stderrors.Is(err, ErrInvalidInput) {
		t.Error("TypeConformanceError should match ErrInvalidInput")
	}
	if !strings.Contains(err.Error(), "CCI_BIOMASS") {
		t.Errorf("error message should name the dataset, got %q", err.Error())
	}
}

func TestCRSResolutionError(t *testing.T) {
	err := NewCRSResolutionError("RADD_EUROPE", "no spatial reference found")
	msg := err.Error()
	if !strings.Contains(msg, "RADD_EUROPE") || !strings.Contains(msg, "no spatial reference") {
		t.Errorf("unexpected message %q", msg)
	}

	got, ok := AsCRSResolution(err)
	if !ok || got.Dataset != "RADD_EUROPE" {
		t.Error("AsCRSResolution should recover the typed error")
	}
}

func TestDimensionInferenceError(t *testing.T) {
	err := NewDimensionInferenceError("tmf", "cover", "x", []string{"x", "longitude", "lon"})
	msg := err.Error()
	for _, want := range []string{"tmf.cover", "x, longitude, lon"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestResamplingSpecError(t *testing.T) {
	tests := []struct {
		name string
		err  *ResamplingSpecError
		want []string
	}{
		{
			name: "unknown method",
			err:  NewResamplingSpecError("gfc", "", "blurry", "unknown resampling method"),
			want: []string{`dataset "gfc"`, `method "blurry"`},
		},
		{
			name: "variable override",
			err:  NewResamplingSpecError("gfc", "disturbance", "x2", "unknown resampling method"),
			want: []string{`variable "disturbance"`},
		},
		{
			name: "missing key",
			err:  NewResamplingSpecError("tmf", "", "", "no resampling entry"),
			want: []string{`dataset "tmf"`, "no resampling entry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !stderrors.Is(tt.err, ErrInvalidInput) {
				t.Error("ResamplingSpecError should match ErrInvalidInput")
			}
			for _, want := range tt.want {
				if !strings.Contains(tt.err.Error(), want) {
					t.Errorf("message %q missing %q", tt.err.Error(), want)
				}
			}
		})
	}
}

func TestGridExtractionErrorUnwrap(t *testing.T) {
	cause := New("no x coordinate")
	err := NewGridExtractionError("ref", "missing pixel grid", cause)
	if !stderrors.Is(err, cause) {
		t.Error("GridExtractionError should unwrap to its cause")
	}
}

func TestMergeError(t *testing.T) {
	err := NewMergeError("time", []string{"a", "b"}, "coordinate values differ")
	msg := err.Error()
	if !strings.Contains(msg, `"time"`) || !strings.Contains(msg, "coordinate values differ") {
		t.Errorf("unexpected message %q", msg)
	}

	if _, ok := AsMerge(err); !ok {
		t.Error("AsMerge should recover the typed error")
	}
	if _, ok := AsMerge(New("plain")); ok {
		t.Error("AsMerge should reject unrelated errors")
	}
}

func TestSentinelHelpers(t *testing.T) {
	if !IsNotImplemented(ErrNotImplemented) {
		t.Error("IsNotImplemented(ErrNotImplemented) should be true")
	}
	if !IsNotFound(ErrNotFound) {
		t.Error("IsNotFound(ErrNotFound) should be true")
	}
	if IsNotFound(ErrReadOnly) {
		t.Error("IsNotFound(ErrReadOnly) should be false")
	}
	if !IsCanceled(ErrCanceled) {
		t.Error("IsCanceled(ErrCanceled) should be true")
	}
}
