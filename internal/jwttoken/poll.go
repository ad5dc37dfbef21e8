package jwttoken

import "context"

// PollForToken runs fn once a token is cached. See Poll.
func (s *Service) PollForToken(ctx context.Context, fn func()) {
	s.Poll(ctx, fn)
}

// Poll runs fn synchronously if the Service is Authenticated. Otherwise it
// schedules one re-check after the poll interval, and each re-check that still
// finds no token schedules exactly one more. fn runs at most once.
//
// Cancelling ctx ends the chain; fn is then never run.
func (s *Service) Poll(ctx context.Context, fn func()) {
	if ctx.Err() != nil {
		return
	}

	if s.HasToken() {
		fn()
		return
	}

	s.scheduler.AfterFunc(s.pollInterval, func() {
		s.Poll(ctx, fn)
	})
}

// Wait blocks until a token is cached or ctx is done.
func (s *Service) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
		return s.JWT(), nil
	default:
	}

	select {
	case <-s.ready:
		return s.JWT(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Ready returns a channel that is closed once a token is cached.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}
