package provider

import (
	"time"

	perr "totalimpact-backend/internal/platform/errors"
)

// RetryType selects the delay growth shape for a policy entry
type RetryType string

const (
	RetryTypeLinear            RetryType = "linear"
	RetryTypeIncrementalBackoff RetryType = "incremental_back_off"
)

// RetryPolicyEntry is the per-error-kind retry configuration. Sentinel
// Retries=-1 means retry forever; DelayCap=-1 means no cap. Missing
// fields default to Retries=0, RetryDelay=0, RetryType=linear, DelayCap=-1.
type RetryPolicyEntry struct {
	Retries    int
	RetryDelay time.Duration
	RetryType  RetryType
	DelayCap   time.Duration
}

// DefaultRetryPolicyEntry returns the zero-value defaults a missing config
// entry resolves to
func DefaultRetryPolicyEntry() RetryPolicyEntry {
	return RetryPolicyEntry{
		Retries:    0,
		RetryDelay: 0,
		RetryType:  RetryTypeLinear,
		DelayCap:   -1,
	}
}

// Policy is the full per-provider table mapping a taxonomy error kind to
// its retry configuration
type Policy struct {
	entries map[perr.ErrorCode]RetryPolicyEntry
}

// NewPolicy builds a Policy from a partial kind-to-entry map, filling any
// kind absent from entries with the default policy
func NewPolicy(entries map[perr.ErrorCode]RetryPolicyEntry) Policy {
	p := Policy{entries: make(map[perr.ErrorCode]RetryPolicyEntry, len(perr.TaxonomyKinds()))}
	for _, k := range perr.TaxonomyKinds() {
		if e, ok := entries[k]; ok {
			p.entries[k] = e
		} else {
			p.entries[k] = DefaultRetryPolicyEntry()
		}
	}
	return p
}

// Entry returns the policy configured for kind
func (p Policy) Entry(kind perr.ErrorCode) RetryPolicyEntry {
	if e, ok := p.entries[kind]; ok {
		return e
	}
	return DefaultRetryPolicyEntry()
}

// MaxRetries returns the configured retry count for kind. -1 means unbounded.
func (p Policy) MaxRetries(kind perr.ErrorCode) int {
	return p.Entry(kind).Retries
}

// SleepTime returns how long to sleep before the given attempt number
// (1-based) for a failure of kind, dispatching on the entry's retry type.
func (p Policy) SleepTime(kind perr.ErrorCode, attempt int) time.Duration {
	e := p.Entry(kind)
	return RetryWait(e.RetryType, e.RetryDelay, e.DelayCap, attempt)
}

// LinearDelay returns min(retryDelay, delayCap) when delayCap >= 0,
// otherwise retryDelay. attempt is ignored (§4.3 S1).
func LinearDelay(retryDelay, delayCap time.Duration, attempt int) time.Duration {
	if delayCap >= 0 && delayCap < retryDelay {
		return delayCap
	}
	return retryDelay
}

// IncrementalBackoff returns retryDelay * 2^(attempt-1), capped at
// delayCap when delayCap >= 0. attempt=1 returns retryDelay unchanged (§4.3 S2).
func IncrementalBackoff(retryDelay, delayCap time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := uint(attempt - 1)
	// guard against absurd shift counts overflowing duration arithmetic
	if shift > 40 {
		shift = 40
	}
	candidate := retryDelay << shift
	if delayCap >= 0 && candidate > delayCap {
		return delayCap
	}
	return candidate
}

// RetryWait dispatches to the delay formula named by kind; any
// unrecognised retry type falls back to linear.
func RetryWait(kind RetryType, retryDelay, delayCap time.Duration, attempt int) time.Duration {
	switch kind {
	case RetryTypeIncrementalBackoff:
		return IncrementalBackoff(retryDelay, delayCap, attempt)
	case RetryTypeLinear:
		return LinearDelay(retryDelay, delayCap, attempt)
	default:
		return LinearDelay(retryDelay, delayCap, attempt)
	}
}
