// Package auth owns the chat user's identity and realtime connection.
//
// # Tokens
//
// Users authenticate with HS256 JWTs. The subject is the user ID; "name" and
// "avatar" claims carry the display identity:
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate(user, 24*time.Hour)
//	user, err := verifier.Verify(token)
//
// Clients do not hold the secret and use ParseIdentity, which decodes the
// claims without verifying the signature. The server checks every request
// with HTTPAuthMiddleware.
//
// LoadToken finds a token from a flag value, the COVEN_CHAT_TOKEN env var,
// a configured file, or ~/.config/coven-chat/token.
//
// # Session
//
// A Session holds the user, the token, and the websocket connection. Its
// event bus outlives individual connections, so handlers registered by the
// conversation store keep working across KeepAlive reconnects:
//
//	sess, err := auth.NewSession(token, "ws://localhost:5001/api/socket", auth.SessionOptions{})
//	go sess.KeepAlive(ctx)
//	store := chat.New(apiClient, sess.Events(), notifier)
package auth
