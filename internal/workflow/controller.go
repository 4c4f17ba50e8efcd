package workflow

import (
	"go.uber.org/zap"

	"speciesdesk/pkg/domain"
)

// Controller binds the gateway and the page-level collaborators shared by the
// edit and delete flows of one host page.
type Controller struct {
	gateway   domain.Gateway
	notifier  Notifier
	refresher Refresher
	logger    *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets the toast sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithRefresher sets the refresh signal.
func WithRefresher(r Refresher) Option {
	return func(c *Controller) {
		if r != nil {
			c.refresher = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController returns a controller dispatching mutations to gateway.
func NewController(gateway domain.Gateway, opts ...Option) *Controller {
	c := &Controller{
		gateway:   gateway,
		notifier:  nopNotifier{},
		refresher: nopRefresher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
