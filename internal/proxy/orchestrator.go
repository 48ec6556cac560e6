package proxy

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"contractcache/internal/cache"
	"contractcache/internal/config"
	"contractcache/internal/contract"
	"contractcache/internal/metrics"
	"contractcache/internal/upstream"
)

// Query is one inbound request for a view function result
type Query struct {
	Address  string
	Function string
	Inputs   url.Values
}

// Orchestrator serves queries cache-aside: a cached entry is returned as is,
// a miss is fetched from the node and written back, and a failed fetch falls
// back to whatever entry the store still holds for the key.
type Orchestrator struct {
	chainID   string
	validator *contract.Validator
	store     cache.Store
	caller    upstream.Caller
	metrics   *metrics.Recorder
	group     *singleflight.Group
	now       func() time.Time
	logger    zerolog.Logger
}

// Options for creating a new Orchestrator
type Options struct {
	ChainID        string
	AllowList      []string
	CoalesceMisses bool
	Metrics        *metrics.Recorder
	Logger         zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(store cache.Store, caller upstream.Caller, opts Options) *Orchestrator {
	o := &Orchestrator{
		chainID:   opts.ChainID,
		validator: contract.NewValidator(opts.AllowList),
		store:     store,
		caller:    caller,
		metrics:   opts.Metrics,
		now:       time.Now,
		logger:    opts.Logger.With().Str("component", "orchestrator").Logger(),
	}
	if o.chainID == "" {
		o.chainID = config.DefaultChainID
	}
	if opts.CoalesceMisses {
		o.group = &singleflight.Group{}
	}
	o.logger.Info().
		Str("chainId", o.chainID).
		Bool("openMode", o.validator.IsOpen()).
		Bool("coalesceMisses", opts.CoalesceMisses).
		Msg("orchestrator ready")
	return o
}

// NewOrchestratorFromConfig creates an Orchestrator from the service configuration
func NewOrchestratorFromConfig(cfg *config.Config, store cache.Store, caller upstream.Caller, recorder *metrics.Recorder, logger zerolog.Logger) *Orchestrator {
	return NewOrchestrator(store, caller, Options{
		ChainID:        cfg.ChainID,
		AllowList:      cfg.ContractAddresses,
		CoalesceMisses: cfg.CoalesceMisses,
		Metrics:        recorder,
		Logger:         logger,
	})
}

// Handle runs one query to completion. It never returns an error: every
// failure becomes a response.
func (o *Orchestrator) Handle(ctx context.Context, q Query) *Response {
	log := o.requestLogger(ctx)

	address, fn, err := o.validator.Validate(q.Address, q.Function)
	if err != nil {
		return o.rejected(log, q, err)
	}

	params, err := contract.ResolveParams(fn, q.Inputs)
	if err != nil {
		return o.rejected(log, q, err)
	}

	key := contract.DeriveKey(o.chainID, address, fn, params)
	log = log.With().Str("cacheKey", key).Logger()

	if entry, ok := o.lookup(ctx, log, key); ok {
		o.metrics.CacheHit()
		log.Debug().Msg("cache hit")
		return cachedResponse(entry.Value, entry.CachedAt())
	}

	o.metrics.CacheMiss()
	log.Info().Msg("cache miss, calling upstream")

	value, err := o.fetch(ctx, log, key, address, fn, params)
	if err == nil {
		return freshResponse(value)
	}

	if errors.Is(err, upstream.ErrUnsupportedFunction) {
		return validationResponse(contract.ErrUnsupportedFunction)
	}

	var upErr *upstream.UpstreamError
	timedOut := errors.As(err, &upErr) && upErr.Timeout()
	log.Error().Err(err).Bool("timeout", timedOut).Msg("upstream call failed")

	// re-read the same key; the store's expiry bounds how stale this can be
	if entry, ok := o.lookup(ctx, log, key); ok {
		o.metrics.StaleServed()
		log.Warn().Time("cachedAt", entry.CachedAt()).Msg("serving stale cache entry")
		return staleResponse(entry.Value, entry.CachedAt())
	}

	o.metrics.StaleMiss()
	return upstreamFailureResponse(err)
}

// fetch calls the node and writes the result back, coalescing identical
// concurrent misses when enabled
func (o *Orchestrator) fetch(ctx context.Context, log zerolog.Logger, key, address string, fn contract.Function, params []string) (string, error) {
	if o.group == nil {
		return o.callAndStore(ctx, log, key, address, fn, params)
	}

	// the shared call must outlive a caller that goes away first
	shared := context.WithoutCancel(ctx)
	v, err, coalesced := o.group.Do(key, func() (interface{}, error) {
		return o.callAndStore(shared, log, key, address, fn, params)
	})
	if coalesced {
		log.Debug().Msg("coalesced with in-flight upstream call")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (o *Orchestrator) callAndStore(ctx context.Context, log zerolog.Logger, key, address string, fn contract.Function, params []string) (string, error) {
	start := time.Now()
	value, err := o.caller.Call(ctx, address, fn, params)
	o.metrics.UpstreamCall(fn.String(), start, err)
	if err != nil {
		return "", err
	}

	entry := cache.NewEntry(key, value, address, fn, params, o.now())
	if err := o.store.Put(ctx, entry); err != nil {
		o.metrics.StoreError(cache.OpPut)
		log.Warn().Err(err).Msg("failed to write cache entry")
	}

	return value, nil
}

// lookup reads key from the store. A store failure is logged and reads as a miss.
func (o *Orchestrator) lookup(ctx context.Context, log zerolog.Logger, key string) (*cache.Entry, bool) {
	entry, ok, err := o.store.Get(ctx, key)
	if err != nil {
		o.metrics.StoreError(cache.OpGet)
		log.Warn().Err(err).Msg("cache lookup failed, treating as miss")
		return nil, false
	}
	return entry, ok
}

func (o *Orchestrator) rejected(log zerolog.Logger, q Query, err error) *Response {
	var verr *contract.ValidationError
	if !errors.As(err, &verr) {
		log.Error().Err(err).Msg("unexpected validation failure")
		return internalErrorResponse()
	}

	log.Debug().
		Str("address", q.Address).
		Str("function", q.Function).
		Str("reason", string(verr.Kind)).
		Msg("request rejected")
	return validationResponse(verr)
}

// requestLogger prefers the request-scoped logger carried by ctx
func (o *Orchestrator) requestLogger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("component", "orchestrator").Logger()
	}
	return o.logger
}
