package app

import "github.com/tbisgaard/bridgekit/config"

// Context is the shared state handed to route handlers and lifespan
// entries. It is populated during bootstrap, before the application
// starts serving, and read-only afterwards; it carries no lock on
// purpose.
type Context struct {
	// Name of the integration, served on the index route.
	Name string

	// Settings the application was built with.
	Settings config.Settings

	user map[string]any
}

func newContext(name string, settings config.Settings) *Context {
	return &Context{
		Name:     name,
		Settings: settings,
		user:     make(map[string]any),
	}
}

// Set stores a user-context value. Last write wins.
func (c *Context) Set(key string, value any) {
	c.user[key] = value
}

// Merge stores every pair from kv into the user context.
func (c *Context) Merge(kv map[string]any) {
	for k, v := range kv {
		c.user[k] = v
	}
}

// Value returns a user-context value and whether it was present.
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.user[key]
	return v, ok
}
