// ABOUTME: Package view renders conversation store snapshots
// ABOUTME: Message list lifecycle, deferred-load images, terminal and HTML renderers

// Package view is the presentation layer over the conversation store.
//
// # Message list
//
// MessageList.Activate binds the list to a partner: it selects the partner,
// subscribes the store to realtime messages, observes the store and loads the
// history. The returned release function undoes the subscription and the
// observation exactly once. Activating again releases the previous cycle
// first, so a store never holds more than one message handler on behalf of
// a list.
//
// Every store change rebuilds a Frame, a plain render model with a header,
// a loading flag and one Bubble per message. When the message list changes
// the scroll target is called so the newest message is visible.
//
// # Images
//
// Image defers decoding of a message attachment. It reports Loading until
// the fetch settles, then calls its ScrollRef whether the load succeeded or
// not. A ScrollRef detached by a released activation ignores calls.
//
// # Renderers
//
// RenderTerminal writes a coloured transcript using fatih/color.
// RenderHTML writes a standalone page with message text rendered from
// markdown by goldmark.
package view
