// Package engine implements the Invocation Engine (C3): it drives one
// (item, provider, method) triple to a terminal outcome, applying the
// rate-limit gate, classifying failures, consulting the retry policy, and
// sleeping interruptibly between attempts.
package engine

import (
	"context"

	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/core/provider"
	perr "totalimpact-backend/internal/platform/errors"
	"totalimpact-backend/internal/platform/logger"
)

// Outcome is the terminal result of driving one invocation: Success
// reports whether the method ultimately succeeded (true also covers the
// "not applicable, nothing to do" cases in steps 1-2 of §4.3), and
// Response carries the tagged result when Success is true.
type Outcome struct {
	Success  bool
	Response provider.Result
}

// Invoke drives p's method over item it to a terminal outcome, per §4.3's
// algorithm. ctx cancellation is the shutdown signal every sleep and the
// loop condition observes.
func Invoke(ctx context.Context, it *item.Item, p *provider.Provider, method provider.Method) Outcome {
	log := logger.C(logger.WithWork(ctx, it.ID, p.Name, string(method)))

	// 1. Capability check
	if !hasCapability(p, method) {
		return Outcome{Success: true}
	}

	// 2. Gather the aliases this method is relevant over
	currentAliases := it.Aliases.Get(p.NamespacesFor(method))
	if len(currentAliases) == 0 {
		return Outcome{Success: true}
	}

	counts := make(map[perr.ErrorCode]int)
	success := false
	aborted := false
	var response provider.Result

	for !success && !aborted && ctx.Err() == nil {
		// 4a. rate-limit gate
		if p.RateLimit != nil {
			provider.SleepInterruptible(ctx, p.RateLimit.SleepTime(0))
			if ctx.Err() != nil {
				break
			}
			p.RateLimit.RegisterUnthrottledHit()
		}

		// 4b. invoke, classify
		res, err := p.Invoke(ctx, method, currentAliases)
		if err == nil {
			response = res
			success = true
			break
		}

		kind, ok := classify(err)
		if !ok {
			log.Error().Err(err).Msg("unknown_error: unrecoverable failure, aborting item")
			aborted = true
			break
		}

		counts[kind]++
		max := p.Policy.MaxRetries(kind)
		if max != -1 && counts[kind] > max {
			log.Warn().Str("kind", perr.KindName(kind)).Int("attempts", counts[kind]).Msg("retry budget exhausted")
			aborted = true
			break
		}

		duration := p.Policy.SleepTime(kind, counts[kind])
		log.Warn().Str("kind", perr.KindName(kind)).Int("attempt", counts[kind]).Dur("sleep", duration).Msg("classified failure, retrying")
		provider.SleepInterruptible(ctx, duration)
	}

	return Outcome{Success: success, Response: response}
}

func hasCapability(p *provider.Provider, method provider.Method) bool {
	switch method {
	case provider.MethodAliases:
		return p.ProvidesAliases()
	case provider.MethodBiblio:
		return p.ProvidesBiblio()
	case provider.MethodMetrics:
		return p.ProvidesMetrics()
	default:
		return false
	}
}

// classify maps err onto a taxonomy kind. Any error that isn't a
// platform/errors *Error carrying one of the closed taxonomy codes is
// treated as unrecoverable (ok=false), matching §4.3's "any other
// exception immediately sets aborted=true".
func classify(err error) (perr.ErrorCode, bool) {
	e, ok := perr.As(err)
	if !ok {
		return perr.KindUnknown, false
	}
	switch e.Code() {
	case perr.KindHTTPTimeout, perr.KindHTTPError, perr.KindClientServerError,
		perr.KindRateLimitReached, perr.KindContentMalformed, perr.KindValidationFailed,
		perr.KindConfiguration:
		return e.Code(), true
	case perr.KindUnknown:
		return perr.KindUnknown, false
	default:
		return perr.KindUnknown, false
	}
}
