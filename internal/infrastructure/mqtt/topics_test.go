package mqtt

import "testing"

func TestTopics_DiscoveryFilters(t *testing.T) {
	got := Topics{}.DiscoveryFilters("homeassistant")
	want := []string{"homeassistant/+/+/config", "homeassistant/+/+/+/config"}
	if len(got) != len(want) {
		t.Fatalf("DiscoveryFilters() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DiscoveryFilters()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTopics_IsDiscoveryTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  bool
	}{
		{"homeassistant/sensor/hall_temp/config", true},
		{"homeassistant/sensor/node1/hall_temp/config", true},
		{"homeassistant/sensor/hall_temp/state", false},
		{"homeassistant2/sensor/hall_temp/config", false},
		{"zigbee2mqtt/hall/config", false},
		{"homeassistant", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			if got := (Topics{}).IsDiscoveryTopic("homeassistant", tt.topic); got != tt.want {
				t.Errorf("IsDiscoveryTopic(%q) = %v, want %v", tt.topic, got, tt.want)
			}
		})
	}
}

func TestTopics_Registration(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"0x00158d0001a2b3c4", "graylogic/bridge/0x00158d0001a2b3c4/register"},
		{"esp/kitchen", "graylogic/bridge/esp_kitchen/register"},
		{"a+b#c", "graylogic/bridge/a_b_c/register"},
	}

	for _, tt := range tests {
		if got := (Topics{}).Registration("graylogic/bridge", tt.id); got != tt.want {
			t.Errorf("Registration(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}

	if got := (Topics{}).AllRegistrations("graylogic/bridge"); got != "graylogic/bridge/+/register" {
		t.Errorf("AllRegistrations() = %q", got)
	}
}

func TestTopics_BridgeStatus(t *testing.T) {
	if got := (Topics{}).BridgeStatus("graylogic-bridge"); got != "graylogic-bridge/status" {
		t.Errorf("BridgeStatus() = %q, want graylogic-bridge/status", got)
	}
}
