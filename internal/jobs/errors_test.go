package jobs

import (
	"context"
	"errors"
	"fmt"
	"mtgstats-backend/pkg/restyutil"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "plain", err: errors.New("unexpected deck link"), expected: false},
		{name: "marked retry", err: Retry(errors.New("busy")), expected: true},
		{name: "wrapped retry", err: fmt.Errorf("get deck: %w", Retry(errors.New("busy"))), expected: true},
		{name: "permanent wins", err: Permanent(Retry(errors.New("busy"))), expected: false},
		{name: "soft time limit", err: fmt.Errorf("%w: %w", ErrSoftTimeLimit, context.DeadlineExceeded), expected: true},
		{name: "server error", err: restyutil.StatusError{Method: "GET", Url: "/format", Code: 502}, expected: true},
		{name: "too many requests", err: restyutil.StatusError{Method: "GET", Url: "/format", Code: 429}, expected: true},
		{name: "not found", err: restyutil.StatusError{Method: "GET", Url: "/format", Code: 404}, expected: false},
		{name: "network", err: fmt.Errorf("fetch: %w", &net.DNSError{Err: "no such host", Name: "mtgtop8.com"}), expected: true},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, IsRetryable(test.err))
		})
	}
}

func TestMarkersKeepCause(t *testing.T) {
	cause := errors.New("cause")
	require.ErrorIs(t, Permanent(cause), cause)
	require.ErrorIs(t, Retry(cause), cause)
	require.Nil(t, Permanent(nil))
	require.Nil(t, Retry(nil))
}
