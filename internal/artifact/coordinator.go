package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/document"
	"github.com/straye-as/quotation-api/internal/domain"
	"github.com/straye-as/quotation-api/internal/lease"
	"github.com/straye-as/quotation-api/internal/locator"
	"github.com/straye-as/quotation-api/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Records is the quotation persistence the Coordinator reads and updates
type Records interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Quotation, error)
	UpdatePointer(ctx context.Context, id uuid.UUID, name string) error
}

// Inquiries resolves a quotation's inquiry reference
type Inquiries interface {
	GetByRef(ctx context.Context, ref domain.InquiryRef) (*domain.Inquiry, error)
}

// Resolver maps a filename to its owning quotation
type Resolver interface {
	Locate(ctx context.Context, filename string) (locator.Match, bool, error)
}

// Builder renders a quotation's artifact
type Builder interface {
	Build(ctx context.Context, quotation *domain.Quotation, inquiry *domain.Inquiry) (*document.Result, error)
}

// Sources are the database-backed dependencies, attached once the database is reachable
type Sources struct {
	Quotations Records
	Inquiries  Inquiries
	Locator    Resolver
}

// Options bound how long requests wait
type Options struct {
	// ReadyTimeout bounds the wait for Sources to be attached
	ReadyTimeout time.Duration
	// WaitTimeout bounds how long one request waits on a rebuild
	WaitTimeout time.Duration
	// RebuildTimeout bounds the rebuild itself, independent of any requester
	RebuildTimeout time.Duration
}

// Artifact is served content
type Artifact struct {
	Filename    string
	Data        []byte
	QuotationID uuid.UUID
	Regenerated bool
}

// Coordinator serves quotation artifacts, rebuilding missing ones.
// At most one rebuild per quotation runs at a time within the process, and
// across replicas when the Locker is distributed.
type Coordinator struct {
	store   storage.Storage
	builder Builder
	locker  lease.Locker
	opts    Options
	logger  *zap.Logger

	ready      chan struct{}
	attachOnce sync.Once
	sources    Sources

	group singleflight.Group
}

func NewCoordinator(store storage.Storage, builder Builder, locker lease.Locker, opts Options, logger *zap.Logger) *Coordinator {
	if locker == nil {
		locker = lease.Noop{}
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 10 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 30 * time.Second
	}
	if opts.RebuildTimeout <= 0 {
		opts.RebuildTimeout = 60 * time.Second
	}
	return &Coordinator{
		store:   store,
		builder: builder,
		locker:  locker,
		opts:    opts,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Attach supplies the database-backed sources and marks the Coordinator ready.
// Only the first call has an effect.
func (c *Coordinator) Attach(sources Sources) {
	c.attachOnce.Do(func() {
		c.sources = sources
		close(c.ready)
		c.logger.Info("Artifact coordinator ready")
	})
}

// Ready reports whether sources are attached
func (c *Coordinator) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until sources are attached, ctx ends, or ReadyTimeout passes
func (c *Coordinator) WaitReady(ctx context.Context) error {
	if c.Ready() {
		return nil
	}

	timer := time.NewTimer(c.opts.ReadyTimeout)
	defer timer.Stop()

	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return newError(KindDependencyNotReady, ctx.Err())
	case <-timer.C:
		return newError(KindDependencyNotReady, ErrNotReady)
	}
}

// Serve returns the artifact stored under filename, rebuilding it from its
// quotation when the store does not have it. The returned Filename is the
// name actually served, which after a rebuild is the canonical name.
func (c *Coordinator) Serve(ctx context.Context, filename string) (*Artifact, error) {
	if err := storage.ValidateName(filename); err != nil {
		return nil, &Error{Kind: KindNotFound, Filename: filename, Err: err}
	}

	if art, ok, err := c.readStored(ctx, filename); err != nil {
		return nil, &Error{Kind: KindDependencyNotReady, Filename: filename, Err: err}
	} else if ok {
		return art, nil
	}

	match, err := c.resolve(ctx, filename)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Artifact missing from store, rebuilding",
		zap.String("filename", filename),
		zap.String("strategy", string(match.Strategy)),
		zap.String("quotationId", match.Quotation.ID.String()),
	)
	return c.ensure(ctx, match.Quotation.ID, filename, false)
}

// Resolve runs only the Locator for filename
func (c *Coordinator) Resolve(ctx context.Context, filename string) (locator.Match, error) {
	return c.resolve(ctx, filename)
}

// ServeQuotation returns a quotation's artifact, rebuilding it if the pointer is unset or dangling
func (c *Coordinator) ServeQuotation(ctx context.Context, id uuid.UUID) (*Artifact, error) {
	if err := c.WaitReady(ctx); err != nil {
		return nil, withQuotation(err, id)
	}
	return c.ensure(ctx, id, "", false)
}

// Regenerate rebuilds a quotation's artifact even if the current one exists
func (c *Coordinator) Regenerate(ctx context.Context, id uuid.UUID) (*Artifact, error) {
	if err := c.WaitReady(ctx); err != nil {
		return nil, withQuotation(err, id)
	}

	art, err := c.ensure(ctx, id, "", true)
	if err != nil || art.Regenerated {
		return art, err
	}
	// joined a flight that served the existing artifact; go again
	return c.ensure(ctx, id, "", true)
}

func (c *Coordinator) readStored(ctx context.Context, name string) (*Artifact, bool, error) {
	exists, err := c.store.Exists(ctx, name)
	if err != nil || !exists {
		return nil, false, err
	}

	data, err := c.store.Read(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &Artifact{Filename: name, Data: data}, true, nil
}

func (c *Coordinator) resolve(ctx context.Context, filename string) (locator.Match, error) {
	if err := c.WaitReady(ctx); err != nil {
		return locator.Match{}, withFilename(err, filename)
	}

	match, found, err := c.sources.Locator.Locate(ctx, filename)
	if err != nil {
		return locator.Match{}, &Error{Kind: KindDependencyNotReady, Filename: filename, Err: err}
	}
	if !found {
		return locator.Match{}, &Error{
			Kind:     KindNotFound,
			Filename: filename,
			Err:      errors.New("no quotation matches the filename"),
		}
	}
	return match, nil
}

// ensure joins or starts the rebuild flight for id and waits for it
func (c *Coordinator) ensure(ctx context.Context, id uuid.UUID, requested string, force bool) (*Artifact, error) {
	ch := c.group.DoChan(id.String(), func() (any, error) {
		return c.rebuild(ctx, id, force)
	})

	timer := time.NewTimer(c.opts.WaitTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, annotate(res.Err, requested, id)
		}
		art := *res.Val.(*Artifact)
		return &art, nil
	case <-ctx.Done():
		return nil, &Error{Kind: KindTimeout, Filename: requested, QuotationID: id.String(), Err: ctx.Err()}
	case <-timer.C:
		c.logger.Warn("Gave up waiting for artifact rebuild",
			zap.String("quotationId", id.String()),
			zap.Duration("waited", c.opts.WaitTimeout),
		)
		return nil, &Error{
			Kind:        KindTimeout,
			Filename:    requested,
			QuotationID: id.String(),
			Err:         fmt.Errorf("rebuild still running after %s", c.opts.WaitTimeout),
		}
	}
}

// rebuild runs inside the flight for id. It outlives the requester that started it.
func (c *Coordinator) rebuild(reqCtx context.Context, id uuid.UUID, force bool) (art *Artifact, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), c.opts.RebuildTimeout)
	defer cancel()

	log := c.logger.With(zap.String("quotationId", id.String()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic during artifact rebuild", zap.Any("panic", r))
			art, err = nil, newError(KindBuildFailure, fmt.Errorf("panic: %v", r))
		}
	}()

	release, err := c.locker.Acquire(ctx, id.String())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(KindTimeout, err)
		}
		return nil, newError(KindDependencyNotReady, err)
	}
	defer release()

	quotation, err := c.sources.Quotations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, err)
		}
		return nil, newError(KindDependencyNotReady, err)
	}

	// another flight or replica may have linked a fresh artifact meanwhile
	if pointer := quotation.Pointer(); pointer != "" && !force {
		stored, ok, err := c.readStored(ctx, pointer)
		if err != nil {
			log.Warn("Failed to check current artifact, rebuilding", zap.String("filename", pointer), zap.Error(err))
		} else if ok {
			stored.QuotationID = id
			return stored, nil
		}
	}

	inquiry, err := c.sources.Inquiries.GetByRef(ctx, quotation.InquiryRef)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindDependencyNotReady, err)
		}
		log.Warn("Inquiry not found, building without it", zap.String("inquiryRef", string(quotation.InquiryRef)))
	}

	start := time.Now()
	built, err := c.builder.Build(ctx, quotation, inquiry)
	if err != nil {
		log.Error("Failed to build artifact", zap.Error(err))
		return nil, newError(KindBuildFailure, err)
	}

	if err := c.store.Write(ctx, built.Filename, built.Data); err != nil {
		log.Error("Failed to write artifact", zap.String("filename", built.Filename), zap.Error(err))
		return nil, newError(KindPersistFailure, err)
	}

	if built.Filename != quotation.Pointer() {
		if err := c.sources.Quotations.UpdatePointer(ctx, id, built.Filename); err != nil {
			log.Error("Failed to update artifact pointer",
				zap.String("filename", built.Filename),
				zap.String("previous", quotation.Pointer()),
				zap.Error(err),
			)
			return nil, newError(KindPersistFailure, err)
		}
	}

	log.Info("Artifact regenerated",
		zap.String("filename", built.Filename),
		zap.String("previous", quotation.Pointer()),
		zap.Int("size", len(built.Data)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Artifact{
		Filename:    built.Filename,
		Data:        built.Data,
		QuotationID: id,
		Regenerated: true,
	}, nil
}

// annotate copies a shared flight error and adds the caller's request details
func annotate(err error, filename string, id uuid.UUID) error {
	var ae *Error
	if !errors.As(err, &ae) {
		return &Error{Kind: KindBuildFailure, Filename: filename, QuotationID: id.String(), Err: err}
	}
	cp := *ae
	if filename != "" {
		cp.Filename = filename
	}
	cp.QuotationID = id.String()
	return &cp
}

func withFilename(err error, filename string) error {
	var ae *Error
	if errors.As(err, &ae) {
		ae.Filename = filename
	}
	return err
}

func withQuotation(err error, id uuid.UUID) error {
	var ae *Error
	if errors.As(err, &ae) {
		ae.QuotationID = id.String()
	}
	return err
}
