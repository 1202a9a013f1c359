package mqtt

import (
	"fmt"
	"strings"
)

// DiscoveryConfigSuffix terminates every discovery config topic.
const DiscoveryConfigSuffix = "/config"

// Topics provides builders for the topics the bridge subscribes and publishes to.
//
//	topics := mqtt.Topics{}
//	filters := topics.DiscoveryFilters("homeassistant")
//	// ["homeassistant/+/+/config", "homeassistant/+/+/+/config"]
type Topics struct{}

// DiscoveryFilters returns the two subscription filters covering discovery
// config topics: <root>/<type>/<object>/config and the node-grouped form
// <root>/<type>/<node>/<object>/config.
func (Topics) DiscoveryFilters(root string) []string {
	return []string{
		root + "/+/+" + DiscoveryConfigSuffix,
		root + "/+/+/+" + DiscoveryConfigSuffix,
	}
}

// IsDiscoveryTopic reports whether topic lies under root and ends in /config.
func (Topics) IsDiscoveryTopic(root, topic string) bool {
	return strings.HasPrefix(topic, root+"/") && strings.HasSuffix(topic, DiscoveryConfigSuffix)
}

// BridgeStatus returns the retained availability topic of the bridge.
//
// Example: graylogic-bridge/status
func (Topics) BridgeStatus(clientID string) string {
	return clientID + "/status"
}

// Registration returns the topic a composite registration is published on.
// Characters MQTT reserves are replaced in the device identifier.
//
// Example: graylogic/bridge/0x00158d0001a2b3c4/register
func (Topics) Registration(prefix, deviceIdentifier string) string {
	return fmt.Sprintf("%s/%s/register", prefix, topicSafe(deviceIdentifier))
}

// AllRegistrations returns a filter matching every registration topic under prefix.
func (Topics) AllRegistrations(prefix string) string {
	return prefix + "/+/register"
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

func topicSafe(segment string) string {
	return topicReplacer.Replace(segment)
}
