// Package router decodes inbound feed frames into envelopes and hands each
// one to the sink registered for the channel it arrived on.
//
// Frames must be UTF-8 JSON objects. The message type is taken from an
// explicit "type" field when present, otherwise inferred from the keys the
// backend sends for each kind of update:
//
//	notification_id      -> notification_status
//	campaign_id          -> campaign_status
//	total_notifications  -> dashboard_stats
//
// Anything else passes through as "opaque". Frames that fail to decode are
// counted, logged and dropped; they never reach a sink.
package router
