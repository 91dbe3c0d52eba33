// Package sink fans each simulated batch out to optional secondary
// destinations alongside the gRPC shipper.
//
// Both sinks publish one message per device so consumers can key on the
// device ID:
//   - Kafka: segmentio/kafka-go Writer with a hash balancer, key = device_id
//   - MQTT: eclipse/paho client, topic = <topic_prefix>/<device_id>
//
// Payloads are the JSON encoding of DeviceMessage.
package sink
