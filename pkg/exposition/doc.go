// Package exposition renders device batches as Prometheus text exposition and
// parses them back.
//
// Each device attribute becomes one gauge family keyed by a device_id label.
// Raw families are always written; normalized and score families only for
// devices that carry those values.
package exposition
