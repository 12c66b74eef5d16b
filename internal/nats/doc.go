// Package nats carries framegraph events and run control over NATS.
//
// # Architecture
//
//   - Server: optional embedded NATS server started by "framegraph serve"
//   - EventPublisher: forwards graph, pump and job events from the event bus
//   - ControlBridge: starts and stops job runs on request
//
// # Subject Hierarchy
//
//	framegraph.graphs.{graph_id}.{event}   # graph lifecycle, endpoint and pump events
//	framegraph.jobs.{job_id}.reloaded      # watched job file changed
//	framegraph.control.{job_id}.start      # start a run (request/reply)
//	framegraph.control.{job_id}.stop       # stop a run (request/reply)
//
// Events are fire-and-forget core NATS messages carrying the event as JSON.
// Publishing is skipped while disconnected.
//
// # Debugging with nats CLI
//
// Follow every event of every graph:
//
//	nats sub "framegraph.graphs.>"
//
// Only pump completions:
//
//	nats sub "framegraph.graphs.*.pump_finished"
//
// Start and stop a job:
//
//	nats req framegraph.control.overlay.start '{"reason":"manual"}'
//	nats req framegraph.control.overlay.stop ''
//
// # Control replies
//
//	{
//	  "job_id": "overlay",
//	  "action": "start",
//	  "state": "running"
//	}
//
// A failed request sets "error" instead of "state".
package nats
