package redis

import "testing"

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"status", VehicleStatus("BOAT001"), "navigator:status:BOAT001"},
		{"last session", LastSession("BOAT001"), "navigator:last_session:BOAT001"},
		{"session", Session("abc"), "navigator:session:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
