package goShelf

import "context"

// Navigator receives navigation commands by route name. router.Router
// implements it.
type Navigator interface {
	Navigate(ctx context.Context, routeName string) error
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, routeName string) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, routeName string) error {
	return f(ctx, routeName)
}
