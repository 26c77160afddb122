package audit

import (
	"context"
	"errors"
)

// MultiSink writes each event to every sink and joins the failures.
// The first sink is the system of record; the rest are mirrors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
