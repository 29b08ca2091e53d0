// Package gateway serves the coven-chat HTTP API for local development and
// integration tests.
//
// # Overview
//
// The Gateway owns the data store, the conversation service and the
// broadcaster that fans new messages out to websocket connections.
//
// # HTTP API
//
// Every route under /api requires an "Authorization: Bearer <jwt>" header
// (or a ?token= query parameter on the socket):
//
//   - GET /api/messages/users - Everyone the caller can message
//   - GET /api/messages/{userID} - Conversation with userID, oldest first
//   - POST /api/messages/send/{userID} - Record a message, returns it
//   - GET /api/socket - Websocket carrying newMessage events
//   - GET /health - Liveness check (no auth)
//
// Errors are JSON objects of the form {"message": "..."}.
//
// # Realtime Frames
//
// Each message sent to a user is pushed to all of that user's sockets:
//
//	{"event": "newMessage", "data": {"_id": "...", "senderId": "...", ...}}
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	go gw.Run(ctx)
//	...
//	cancel()
//
// # Key Files
//
//   - gateway.go: Gateway struct, initialization, Run/Shutdown
//   - api.go: router and REST handlers
//   - socket.go: websocket push
//   - seed.go: demo users
package gateway
