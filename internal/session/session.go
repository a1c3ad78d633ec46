// Package session keeps per-browser server-side state keyed by an opaque
// cookie id. Flows receive a *Session explicitly so they can be exercised
// without an HTTP server.
package session

import "maps"

const (
	KeyPendingEmail  = "pending_verification_email"
	KeyUserEmail     = "user_email"
	keyFlash         = "_flash"
	keyFlashCategory = "_flash_category"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// Session is a mutable string bag. It is not safe for concurrent use; each
// request owns its own instance.
type Session struct {
	id        string
	values    map[string]string
	modified  bool
	destroyed bool
	renew     bool
}

// New returns an empty session with no server-side record yet.
func New() *Session {
	return &Session{values: make(map[string]string)}
}

func load(id string, values map[string]string) *Session {
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{id: id, values: values}
}

// ID is the current cookie id, empty until the session is first persisted.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	if cur, ok := s.values[key]; ok && cur == value {
		return
	}
	s.values[key] = value
	s.modified = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.modified = true
}

// Clear drops every key and schedules the server-side record for deletion.
func (s *Session) Clear() {
	s.values = make(map[string]string)
	s.destroyed = true
	s.modified = true
}

// Renew asks for a fresh id on save, used after privilege changes.
func (s *Session) Renew() {
	s.renew = true
	s.modified = true
}

// Len reports the number of keys held.
func (s *Session) Len() int {
	return len(s.values)
}

func (s *Session) Values() map[string]string {
	return maps.Clone(s.values)
}

func (s *Session) Modified() bool {
	return s.modified
}

func (s *Session) SetFlash(category, message string) {
	s.Set(keyFlash, message)
	s.Set(keyFlashCategory, category)
}

// PopFlash returns and removes the pending flash message.
func (s *Session) PopFlash() (Flash, bool) {
	msg, ok := s.values[keyFlash]
	if !ok {
		return Flash{}, false
	}
	f := Flash{Category: s.values[keyFlashCategory], Message: msg}
	s.Delete(keyFlash)
	s.Delete(keyFlashCategory)
	return f, true
}
