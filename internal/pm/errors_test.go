package pm

import (
	"errors"
	"testing"
)

func TestCollaboratorWrapsVerbatim(t *testing.T) {
	cause := errors.New("transform plan lost")
	err := Collaborator("forward", cause)

	var ce *CollaboratorError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CollaboratorError, got %T", err)
	}
	if ce.Stage != "forward" || !errors.Is(err, cause) {
		t.Errorf("unexpected wrapping %+v", ce)
	}
	if err.Error() != "pm: forward: transform plan lost" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if Collaborator("paint", nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("nc must be positive, got %d", -1)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if err.Error() != "pm: invalid configuration: nc must be positive, got -1" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		axis int
		want Attribute
	}{
		{0, AttrAccX},
		{1, AttrAccY},
		{2, AttrAccZ},
	}
	for _, tt := range tests {
		if got := AccelerationAttr(tt.axis); got != tt.want {
			t.Errorf("axis %d: expected %b, got %b", tt.axis, tt.want, got)
		}
	}

	set := AttrPosition | AttrAccY
	if !set.Has(AttrPosition) || !set.Has(AttrAccY) || set.Has(AttrAccX) || set.Has(AttrPosition|AttrVelocity) {
		t.Errorf("unexpected membership for %b", set)
	}
}
