// Package deadletter forwards rejected discovery payloads to Kafka.
//
// Malformed or incomplete discovery messages are still logged and dropped
// by the collector; when dead-lettering is enabled a JSON envelope with the
// original topic, payload and rejection reason is also written to a Kafka
// topic for later inspection. Writes are asynchronous and never block the
// discovery stream.
package deadletter
