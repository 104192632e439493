package session

import (
	"sync"

	"github.com/cansim/cansim/pkg/core"
)

// Context holds the current session state shared across services.
type Context struct {
	mu      sync.RWMutex
	Session *core.Session
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Session: &core.Session{VehicleID: "no session loaded"},
	}
}

// Get returns the current session
func (c *Context) Get() *core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Session
}

// Set sets the current session
func (c *Context) Set(s *core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Session = s
}

// SetID stamps the database-assigned ID onto the current session.
func (c *Context) SetID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Session.ID = id
}
