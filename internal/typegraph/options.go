package typegraph

import (
	"go.uber.org/zap"

	"github.com/hanpama/typegraph/internal/eventbus"
)

type options struct {
	logger           *zap.Logger
	bus              *eventbus.Bus
	strict           bool
	queryType        string
	mutationType     string
	subscriptionType string
	description      string
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the logger used for registration and freeze diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBus sends registry events to b instead of the process-wide bus.
func WithBus(b *eventbus.Bus) Option { return func(o *options) { o.bus = b } }

// WithStrict controls how incompatible field redefinitions are treated.
// Strict registries (the default) report them as validation errors; lenient
// ones keep the first definition and only log the conflict.
func WithStrict(strict bool) Option { return func(o *options) { o.strict = strict } }

// WithRootTypes overrides the root operation type names used by Build.
// Empty names fall back to Query, Mutation and Subscription.
func WithRootTypes(query, mutation, subscription string) Option {
	return func(o *options) {
		if query != "" {
			o.queryType = query
		}
		if mutation != "" {
			o.mutationType = mutation
		}
		if subscription != "" {
			o.subscriptionType = subscription
		}
	}
}

// WithDescription sets the schema description reported by introspection.
func WithDescription(desc string) Option { return func(o *options) { o.description = desc } }

func defaultOptions() options {
	return options{
		logger:           zap.NewNop(),
		strict:           true,
		queryType:        "Query",
		mutationType:     "Mutation",
		subscriptionType: "Subscription",
	}
}
