package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"git.home.luguber.info/inful/loadkit/internal/loaderr"
)

// StatusError reports a non-2xx response from the remote API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.Code)
}

// classify maps a raw client error onto the loading error taxonomy:
// connectivity, bad status, or decode failure. Context cancellation is
// passed through untouched so the pipeline can tell cancellation from
// failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var se *StatusError
	if errors.As(err, &se) {
		if se.Code >= 500 {
			return loaderr.WrapRetryable(err, loaderr.CategoryStatus, "server error")
		}
		return loaderr.Wrap(err, loaderr.CategoryStatus, "request rejected")
	}

	var ne net.Error
	var ue *url.Error
	if errors.As(err, &ne) || errors.As(err, &ue) {
		return loaderr.WrapRetryable(err, loaderr.CategoryConnectivity, "no connectivity")
	}

	return loaderr.Wrap(err, loaderr.CategoryDecode, "decode response")
}
