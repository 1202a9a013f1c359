package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDiscoverySession = "discovery_session"
	MeasurementRegistration     = "device_registration"
)

// SessionMetric summarises one closed discovery window.
type SessionMetric struct {
	SessionID  string
	RootTopic  string
	Devices    int
	Entities   int
	Rejected   int
	Duplicates int
	Window     time.Duration
}

// WriteSessionMetric records the outcome of a discovery window.
func (c *Client) WriteSessionMetric(m SessionMetric) {
	c.WritePoint(MeasurementDiscoverySession,
		map[string]string{
			"root_topic": m.RootTopic,
		},
		map[string]interface{}{
			"session_id": m.SessionID,
			"devices":    m.Devices,
			"entities":   m.Entities,
			"rejected":   m.Rejected,
			"duplicates": m.Duplicates,
			"window_ms":  m.Window.Milliseconds(),
		},
	)
}

// WriteRegistrationMetric records one submitted composite registration.
func (c *Client) WriteRegistrationMetric(deviceIdentifier string, children int, ok bool) {
	c.WritePoint(MeasurementRegistration,
		map[string]string{
			"device_id": deviceIdentifier,
		},
		map[string]interface{}{
			"children": children,
			"ok":       ok,
		},
	)
}

// WritePoint writes a point stamped now. Dropped when not connected.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
