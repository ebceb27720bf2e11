// Package realtime implements the push channel of the catalog: a websocket
// hub that accepts mutation events from any connected client, applies them
// through the catalog manager, and fans the resulting state change out to
// every connection. Delivery is fire-and-forget; a disconnected client simply
// misses updates and receives a fresh snapshot on reconnect.
package realtime
