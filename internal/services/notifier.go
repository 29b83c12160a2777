package services

import (
	"context"
	"errors"

	"bilancio/internal/core"
)

// Notifier is told about every successful mutation.
type Notifier interface {
	Notify(ctx context.Context, e core.ChangeEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e core.ChangeEvent) error

func (f NotifierFunc) Notify(ctx context.Context, e core.ChangeEvent) error {
	return f(ctx, e)
}

// Notifiers fans an event out to every non-nil notifier and joins the errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, e core.ChangeEvent) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
