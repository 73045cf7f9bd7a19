package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/straye-as/quotation-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Strategy names the lookup that matched a filename to a quotation
type Strategy string

const (
	StrategyExactPointer       Strategy = "exact_pointer"
	StrategyFuzzyPointer       Strategy = "fuzzy_pointer"
	StrategyInquiryNumber      Strategy = "inquiry_number"
	StrategyTimestampProximity Strategy = "timestamp_proximity"
)

// QuotationFinder is the quotation lookup surface the strategies need.
// Misses are reported as gorm.ErrRecordNotFound.
type QuotationFinder interface {
	FindByPointer(ctx context.Context, name string) (*domain.Quotation, error)
	FindByPointerLike(ctx context.Context, fragment string) (*domain.Quotation, error)
	FindLatestByInquiryRefs(ctx context.Context, refs ...string) (*domain.Quotation, error)
	FindLatestCreatedBetween(ctx context.Context, from, to time.Time) (*domain.Quotation, error)
}

// InquiryFinder looks inquiries up by number
type InquiryFinder interface {
	GetByNumber(ctx context.Context, number string) (*domain.Inquiry, error)
}

// Match is a resolved quotation and the strategy that found it
type Match struct {
	Quotation *domain.Quotation
	Strategy  Strategy
}

type matcher struct {
	strategy Strategy
	find     func(ctx context.Context, f Filename) (*domain.Quotation, error)
}

// Locator maps a requested artifact filename to the quotation that owns it.
// Strategies run in a fixed order and the first hit wins.
type Locator struct {
	quotations QuotationFinder
	inquiries  InquiryFinder
	matchers   []matcher
	logger     *zap.Logger
}

func NewLocator(quotations QuotationFinder, inquiries InquiryFinder, logger *zap.Logger) *Locator {
	l := &Locator{
		quotations: quotations,
		inquiries:  inquiries,
		logger:     logger,
	}
	l.matchers = []matcher{
		{StrategyExactPointer, l.byExactPointer},
		{StrategyFuzzyPointer, l.byFuzzyPointer},
		{StrategyInquiryNumber, l.byInquiryNumber},
		{StrategyTimestampProximity, l.byTimestampProximity},
	}
	return l
}

// Locate runs the strategies in order. The bool is false when no strategy matched;
// the error is only set when a lookup itself failed.
func (l *Locator) Locate(ctx context.Context, filename string) (Match, bool, error) {
	f := ParseFilename(filename)

	for _, m := range l.matchers {
		q, err := m.find(ctx, f)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return Match{}, false, fmt.Errorf("%s lookup failed: %w", m.strategy, err)
		}
		if q == nil {
			continue
		}

		l.logger.Debug("Resolved artifact filename",
			zap.String("filename", filename),
			zap.String("strategy", string(m.strategy)),
			zap.String("quotationId", q.ID.String()),
		)
		return Match{Quotation: q, Strategy: m.strategy}, true, nil
	}

	l.logger.Debug("No quotation matches artifact filename", zap.String("filename", filename))
	return Match{}, false, nil
}

func (l *Locator) byExactPointer(ctx context.Context, f Filename) (*domain.Quotation, error) {
	return l.quotations.FindByPointer(ctx, f.Raw)
}

func (l *Locator) byFuzzyPointer(ctx context.Context, f Filename) (*domain.Quotation, error) {
	if f.Stem == "" {
		return nil, nil
	}
	return l.quotations.FindByPointerLike(ctx, f.Stem)
}

func (l *Locator) byInquiryNumber(ctx context.Context, f Filename) (*domain.Quotation, error) {
	if f.InquiryNumber == "" {
		return nil, nil
	}

	inquiry, err := l.inquiries.GetByNumber(ctx, f.InquiryNumber)
	if err != nil {
		return nil, err
	}
	return l.quotations.FindLatestByInquiryRefs(ctx, inquiry.ID.String(), inquiry.InquiryNumber)
}

func (l *Locator) byTimestampProximity(ctx context.Context, f Filename) (*domain.Quotation, error) {
	if !f.HasTimestamp {
		return nil, nil
	}
	return l.quotations.FindLatestCreatedBetween(ctx, f.Timestamp.Add(-f.Window), f.Timestamp.Add(f.Window))
}
