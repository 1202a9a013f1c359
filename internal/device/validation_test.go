package device

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-bridge/internal/capability"
)

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Registration)
		wantErr bool
	}{
		{"valid", func(*Registration) {}, false},
		{"empty identifier", func(r *Registration) { r.DeviceIdentifier = "  " }, true},
		{"long identifier", func(r *Registration) { r.DeviceIdentifier = strings.Repeat("x", 257) }, true},
		{"empty display name", func(r *Registration) { r.DisplayName = "" }, true},
		{"long display name", func(r *Registration) { r.DisplayName = strings.Repeat("n", 101) }, true},
		{"long serial", func(r *Registration) { r.SerialNumber = strings.Repeat("s", 33) }, true},
		{"long vendor", func(r *Registration) { r.Vendor = strings.Repeat("v", 65) }, true},
		{"no children", func(r *Registration) { r.Children = nil }, true},
		{"duplicate child names", func(r *Registration) { r.Children[1].Name = r.Children[0].Name }, true},
		{"blank child name", func(r *Registration) { r.Children[0].Name = " " }, true},
		{"unknown capability", func(r *Registration) { r.Children[0].Capability = capability.Type("toaster") }, true},
		{"many children", func(r *Registration) { r.Children = manyChildren(500) }, false},
		{"children beyond endpoint space", func(r *Registration) { r.Children = manyChildren(MaxChildren + 1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRegistration("dev-1")
			tt.mutate(r)
			err := ValidateRegistration(r)
			if tt.wantErr && !errors.Is(err, ErrInvalidRegistration) {
				t.Errorf("ValidateRegistration() error = %v, want ErrInvalidRegistration", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateRegistration() unexpected error = %v", err)
			}
		})
	}
}

func manyChildren(n int) []Child {
	children := make([]Child, n)
	for i := range children {
		id := strconv.Itoa(i)
		children[i] = Child{
			Name:         "Power " + id,
			EntityID:     "p" + id,
			Capability:   capability.TypeElectricalSensor,
			DeviceTypeID: capability.TypeElectricalSensor.DeviceTypeID(),
		}
	}
	return children
}

func TestValidateRegistration_Nil(t *testing.T) {
	if err := ValidateRegistration(nil); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("ValidateRegistration(nil) error = %v", err)
	}
}

func TestRegistration_DeepCopy(t *testing.T) {
	r := testRegistration("dev-1")
	cp := r.DeepCopy()
	cp.Children[0].Name = "changed"
	if r.Children[0].Name == "changed" {
		t.Error("DeepCopy shares the children slice")
	}
	var nilReg *Registration
	if nilReg.DeepCopy() != nil {
		t.Error("nil DeepCopy should be nil")
	}
}
