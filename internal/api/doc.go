// Package api is the HTTP client for the chat REST endpoints.
//
// # Endpoints
//
//   - GET  {base}/messages/users          partners the caller can talk to
//   - GET  {base}/messages/{userId}       history with one partner
//   - POST {base}/messages/send/{userId}  send text and/or an image
//
// Every request carries "Authorization: Bearer <token>" when a token is
// configured. Non-2xx responses are returned as *Error with the server's
// "message" (or "error") field.
//
// # Usage
//
//	client := api.New("http://localhost:5001/api", api.WithToken(token))
//	partners, err := client.ListPartners(ctx)
package api
