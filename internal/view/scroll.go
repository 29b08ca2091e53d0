// ABOUTME: Scroll target handle shared by the message list and its images
// ABOUTME: Calls after Detach are silently ignored

package view

import "sync"

// ScrollRef points at the element that should be brought into view when
// new content arrives. The zero value is detached.
type ScrollRef struct {
	mu     sync.Mutex
	target func()
}

// NewScrollRef returns a ref attached to target.
func NewScrollRef(target func()) *ScrollRef {
	r := &ScrollRef{}
	r.Attach(target)
	return r
}

// Attach sets the scroll target.
func (r *ScrollRef) Attach(target func()) {
	r.mu.Lock()
	r.target = target
	r.mu.Unlock()
}

// Detach clears the target.
func (r *ScrollRef) Detach() {
	r.Attach(nil)
}

// Attached reports whether a target is set.
func (r *ScrollRef) Attached() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target != nil
}

// ScrollIntoView calls the target, if any. Safe on a nil ref.
func (r *ScrollRef) ScrollIntoView() {
	if r == nil {
		return
	}
	r.mu.Lock()
	target := r.target
	r.mu.Unlock()

	if target != nil {
		target()
	}
}
