// Package realtime delivers named server push events over a websocket.
//
// # Wire format
//
// Every websocket text frame is a JSON object:
//
//	{"event": "newMessage", "data": {...}}
//
// # Components
//
//   - Bus: registry of handlers per event name. Handlers are identified by
//     an ID returned from On so one subscriber can be removed without
//     touching the others. Dispatch calls handlers in registration order.
//   - Socket: one websocket connection. A single read goroutine decodes
//     frames and dispatches them into a Bus, so events reach handlers in
//     the order the server sent them.
//
// A Bus outlives any one Socket: the session owner can reconnect and keep
// every registered handler.
package realtime
