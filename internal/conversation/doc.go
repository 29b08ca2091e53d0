// Package conversation provides direct message delivery for the chat server.
//
// # Overview
//
// The conversation package sits between the HTTP/WebSocket handlers and the
// store. Handlers never write messages themselves; they call Service.Send.
//
// # Service
//
//	svc := conversation.New(store, broadcaster, logger)
//
// Key operations:
//
//   - Partners(ctx, userID): everyone the user can message
//   - History(ctx, userID, otherID): the conversation, oldest first
//   - Send(ctx, senderID, receiverID, req): record, then deliver
//
// Send rejects empty payloads, messages to oneself and unknown recipients.
// The stored message carries a UUID, the server time and the sender's first
// name.
//
// # Broadcasting
//
// Broadcaster fans persisted messages out to every socket the receiver has
// open:
//
//	ch, subID := broadcaster.Subscribe(ctx, userID)
//	defer broadcaster.Unsubscribe(userID, subID)
//
// Publishing never blocks. A subscriber whose buffer is full misses the
// message and recovers it on the next history load.
package conversation
