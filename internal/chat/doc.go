// Package chat is the client-side conversation store.
//
// # Overview
//
// Store is the single source of truth for what the chat UI shows: the
// partner list, the active partner, that partner's message history, and the
// loading flags around each remote call. It is fed by two sources:
//
//   - REST responses: LoadPartners, LoadMessages, SendMessage
//   - realtime "newMessage" events, after SubscribeToMessages
//
// # Invariants
//
//   - Messages always belong to the selected partner. Selecting a different
//     partner or starting a history load replaces the history; nothing is
//     merged across partners.
//   - Partners are ordered by last activity, most recent first, with idle
//     partners last, after every mutation.
//   - A partner's unread flag is never set while it is selected.
//   - At most one newMessage handler is registered by a Store.
//
// # Errors
//
// Every operation surfaces its own failure through the Notifier exactly once
// and resets its loading flag. The error is also returned so callers can
// decide whether to chain the next step.
//
// # Observing
//
// Observe registers a callback that receives a fresh State after every
// mutation. Callbacks run outside the store lock and may be invoked from the
// realtime read goroutine, so they must not block for long.
package chat
