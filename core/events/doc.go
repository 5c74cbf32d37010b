// Package events defines the control run events emitted on the event bus.
//
// Available event types:
//   - RunStarted: a request was accepted and a strategy resolved
//   - RunCompleted: a run finished, successfully or not
package events
