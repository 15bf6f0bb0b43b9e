package scanner

import (
	"context"
	"strings"
)

// Resolver walks an ordered list of candidate OIDs and returns the first
// one that yields a non-empty value.
type Resolver struct {
	q   Querier
	log Logger
}

// NewResolver wraps q. A nil logger discards diagnostics.
func NewResolver(q Querier, log Logger) *Resolver {
	return &Resolver{q: q, log: orNop(log)}
}

// Resolve tries each OID in order and stops at the first non-empty answer.
// Failures of any kind move on to the next candidate; the boolean is false
// when every candidate failed or came back empty, or ctx was cancelled.
func (r *Resolver) Resolve(ctx context.Context, ip string, oids []string) (string, bool) {
	for _, oid := range oids {
		if ctx.Err() != nil {
			return "", false
		}
		value, err := r.q.Query(ctx, ip, oid)
		if err != nil {
			r.log.Debug("candidate OID failed", "ip", ip, "oid", oid, "reason", FailureOf(err).String())
			continue
		}
		if strings.TrimSpace(value) == "" {
			r.log.Debug("candidate OID empty", "ip", ip, "oid", oid)
			continue
		}
		return value, true
	}
	return "", false
}

// Query passes a single lookup through to the underlying querier.
func (r *Resolver) Query(ctx context.Context, ip, oid string) (string, error) {
	return r.q.Query(ctx, ip, oid)
}
