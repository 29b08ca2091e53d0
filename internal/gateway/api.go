// ABOUTME: HTTP handlers for the chat REST API under /api/messages
// ABOUTME: Lists partners, returns conversation history and records sent messages

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/2389/coven-chat/internal/assets"
	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/model"
	"github.com/2389/coven-chat/internal/store"
)

// maxSendBody bounds POST /messages/send bodies. Images travel as data URLs.
const maxSendBody = 12 << 20

// routes builds the root handler.
func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := g.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", g.handleHealth)
	r.Handle("/avatar.png", assets.AvatarHandler())
	r.Handle("/static/*", http.StripPrefix("/static", assets.FileServer()))

	r.Route("/api", func(r chi.Router) {
		r.Use(g.requestLogger)
		r.Use(auth.HTTPAuthMiddleware(g.verifier))

		r.Route("/messages", func(r chi.Router) {
			r.Get("/users", g.handleListPartners)
			r.Get("/{userID}", g.handleHistory)
			r.Post("/send/{userID}", g.handleSend)
		})
		r.Get("/socket", g.handleSocket)
	})

	return r
}

// requestLogger logs one line per API request through the gateway logger.
func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			g.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// handleListPartners handles GET /api/messages/users.
func (g *Gateway) handleListPartners(w http.ResponseWriter, r *http.Request) {
	me := auth.MustFromContext(r.Context())

	partners, err := g.conversation.Partners(r.Context(), me.ID)
	if err != nil {
		g.logger.Error("failed to list partners", "user_id", me.ID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, partners)
}

// handleHistory handles GET /api/messages/{userID}.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	me := auth.MustFromContext(r.Context())
	otherID := chi.URLParam(r, "userID")

	msgs, err := g.conversation.History(r.Context(), me.ID, otherID)
	if err != nil {
		g.logger.Error("failed to load history", "user_id", me.ID, "other_id", otherID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, msgs)
}

// handleSend handles POST /api/messages/send/{userID}.
// The stored message is returned to the sender and pushed to the receiver's
// sockets as a newMessage event.
func (g *Gateway) handleSend(w http.ResponseWriter, r *http.Request) {
	me := auth.MustFromContext(r.Context())
	receiverID := chi.URLParam(r, "userID")

	var req model.SendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSendBody)).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := g.conversation.Send(r.Context(), me.ID, receiverID, req)
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrEmptyMessage), errors.Is(err, conversation.ErrSelfMessage):
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, conversation.ErrUnknownRecipient):
		g.sendJSONError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		// The token is valid but its user no longer exists.
		g.sendJSONError(w, http.StatusUnauthorized, "Unauthorized - User not found")
		return
	default:
		g.logger.Error("failed to send message", "sender_id", me.ID, "receiver_id", receiverID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	g.writeJSON(w, http.StatusCreated, msg)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("failed to write response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.writeJSON(w, status, map[string]string{"message": message})
}
