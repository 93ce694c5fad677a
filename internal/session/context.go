// internal/session/context.go
package session

import (
	"context"
	"sync"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/models"
)

// Context is the signed-in user of one request chain. It is created empty, filled
// by Init and emptied again by Teardown.
type Context struct {
	svc *Service

	mu      sync.RWMutex
	token   string
	session *models.Session
}

func NewContext(svc *Service) *Context {
	return &Context{svc: svc}
}

// Init validates token and binds its session.
func (c *Context) Init(ctx context.Context, token string) error {
	sess, err := c.svc.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.session = token, sess
	return nil
}

// Teardown revokes the session and empties the context.
func (c *Context) Teardown(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token, c.session = "", nil
	c.mu.Unlock()

	if token == "" {
		return nil
	}
	return c.svc.Revoke(ctx, token)
}

func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil && !c.session.IsExpired(c.svc.now())
}

func (c *Context) User() (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return models.User{}, false
	}
	return c.session.User, true
}

// Require returns the user when the session is active and has role. An empty role
// accepts any signed-in user.
func (c *Context) Require(role models.Role) (models.User, error) {
	user, ok := c.User()
	if !ok || !c.Active() {
		return models.User{}, errors.NewSessionInvalidError("not signed in")
	}
	if role != "" && user.Role != role {
		return models.User{}, errors.NewForbiddenError("requires role " + string(role))
	}
	return user, nil
}

type contextKey struct{}

func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the session context stored by WithContext.
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok
}
