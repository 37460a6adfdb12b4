package probe

import (
	"errors"
	"fmt"
)

// ErrDNSResolve matches every *DNSError through errors.Is.
var ErrDNSResolve = errors.New("dns resolution failed")

// DNSError is returned when an endpoint host cannot be resolved.
type DNSError struct {
	Host string
	Err  error
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("dns resolution failed for %s: %v", e.Host, e.Err)
}

func (e *DNSError) Unwrap() error { return e.Err }

func (e *DNSError) Is(target error) bool { return target == ErrDNSResolve }
