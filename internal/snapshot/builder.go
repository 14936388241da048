package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/opportunities/internal/classify"
	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
)

// ErrSourceUnavailable wraps any failure to read the upstream source.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source is the paginated upstream record store.
type Source interface {
	FetchPage(ctx context.Context, cursor string, pageSize int) (domain.RecordPage, error)
}

// Normalizer turns one raw record into an opportunity. ok=false means the
// record is not published.
type Normalizer interface {
	Map(raw domain.RawRecord) (opp domain.Opportunity, ok bool, err error)
}

// Builder runs fetch, normalize and classify to produce one Snapshot.
type Builder struct {
	source     Source
	normalizer Normalizer
	policy     RetryPolicy
	buckets    classify.Policy
	logger     logger.Logger
	location   *time.Location
	now        func() time.Time
}

// NewBuilder creates a builder. "Today" is computed in loc; nil means UTC.
func NewBuilder(
	source Source,
	normalizer Normalizer,
	policy RetryPolicy,
	buckets classify.Policy,
	loc *time.Location,
	log logger.Logger,
) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		source:     source,
		normalizer: normalizer,
		policy:     policy.withDefaults(),
		buckets:    buckets,
		logger:     log,
		location:   loc,
		now:        time.Now,
	}
}

// Policy returns the effective retry policy.
func (b *Builder) Policy() RetryPolicy { return b.policy }

// Build fetches up to MaxPages pages and returns a complete snapshot. Any
// page that still fails after its retries fails the whole build; a partial
// snapshot is never returned.
func (b *Builder) Build(ctx context.Context) (*domain.Snapshot, error) {
	raws, stats, err := b.fetch(ctx)
	if err != nil {
		return nil, err
	}

	opps := make([]*domain.Opportunity, 0, len(raws))
	for _, raw := range raws {
		opp, ok, err := b.normalize(raw)
		if err != nil {
			stats.Dropped++
			b.logger.Warn("dropping malformed record",
				logger.String("record_id", raw.ID),
				logger.Error(err))
			continue
		}
		if !ok {
			continue
		}
		opps = append(opps, opp)
	}
	stats.Published = len(opps)

	now := b.now()
	buckets := classify.Classify(opps, domain.NewDate(now.In(b.location)), b.buckets)

	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		General:     buckets.General,
		ClosingSoon: buckets.ClosingSoon,
		Featured:    buckets.Featured,
		BuiltAt:     now.UTC(),
		Stats:       stats,
	}

	b.logger.Info("snapshot built",
		logger.String("snapshot_id", snap.ID),
		logger.Int("pages", stats.Pages),
		logger.Int("fetched", stats.Fetched),
		logger.Int("published", stats.Published),
		logger.Int("dropped", stats.Dropped),
		logger.String("cap_reason", stats.CapReason))

	return snap, nil
}

func (b *Builder) fetch(ctx context.Context) ([]domain.RawRecord, domain.BuildStats, error) {
	var (
		stats  domain.BuildStats
		raws   []domain.RawRecord
		cursor string
	)

	for {
		var page domain.RecordPage
		attempts, err := b.policy.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = b.source.FetchPage(ctx, cursor, b.policy.PageSize)
			return err
		})
		if err != nil {
			return nil, stats, fmt.Errorf("%w: page %d failed after %d attempts: %w",
				ErrSourceUnavailable, stats.Pages+1, attempts, err)
		}
		if attempts > 1 {
			b.logger.Warn("source page succeeded after retry",
				logger.Int("page", stats.Pages+1),
				logger.Int("attempts", attempts))
		}

		stats.Pages++
		stats.Fetched += len(page.Records)
		raws = append(raws, page.Records...)

		if !page.HasMore || page.NextCursor == "" {
			stats.CapReason = domain.CapExhausted
			break
		}
		if stats.Pages >= b.policy.MaxPages {
			stats.CapReason = domain.CapMaxPages
			break
		}
		cursor = page.NextCursor
	}

	return raws, stats, nil
}

// normalize converts a record, turning a panic into an error so one bad
// record cannot abort the batch.
func (b *Builder) normalize(raw domain.RawRecord) (opp *domain.Opportunity, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			opp, ok, err = nil, false, fmt.Errorf("panic while normalizing: %v", r)
		}
	}()

	o, ok, err := b.normalizer.Map(raw)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &o, true, nil
}
