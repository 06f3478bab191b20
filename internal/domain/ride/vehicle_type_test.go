package ride

import "testing"

func TestParseVehicleType(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    VehicleType
		wantErr bool
	}{
		{"exact match", "suv", VehicleSUV, false},
		{"uppercase normalizes", "SEDAN", VehicleSedan, false},
		{"padded normalizes", "  bike  ", VehicleBike, false},
		{"unknown rejected", "helicopter", "", true},
		{"empty rejected", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVehicleType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVehicleType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseVehicleType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
