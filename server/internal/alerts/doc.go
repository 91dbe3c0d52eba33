// Package alerts implements the rule evaluation engine and webhook delivery
// for NetPulse alerting. Rules are evaluated against every device of each
// batch; webhooks are delivered to Teams, Slack, or generic HTTP targets.
package alerts
