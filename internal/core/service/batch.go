package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
	"github.com/coursecatalog/catalog-api/internal/pkg/metrics"
)

// WorkerPool runs n independent tasks with bounded concurrency and waits for
// all of them. An error means the pool itself failed, not a task.
type WorkerPool interface {
	Run(ctx context.Context, n int, task func(ctx context.Context, i int)) error
}

// courseCreator is the single-course create path shared by Add and Import.
type courseCreator interface {
	create(ctx context.Context, payload domain.NewCourse, owner *domain.User) (*domain.Course, error)
}

// BatchCoordinator normalizes rows and submits every valid one to the create
// path concurrently. Each row succeeds or fails on its own.
type BatchCoordinator struct {
	normalizer *Normalizer
	creator    courseCreator
	pool       WorkerPool
	log        zerolog.Logger
}

func NewBatchCoordinator(normalizer *Normalizer, creator courseCreator, pool WorkerPool, log zerolog.Logger) *BatchCoordinator {
	return &BatchCoordinator{normalizer: normalizer, creator: creator, pool: pool, log: log}
}

// Import creates one course per row for owner. It returns an error only when
// the dispatch itself fails; the partial result is returned alongside it.
func (b *BatchCoordinator) Import(ctx context.Context, rows []domain.RawRow, owner *domain.User) (*ports.BatchResult, error) {
	start := time.Now()
	batchID := uuid.NewString()
	log := b.log.With().Str("batch_id", batchID).Str("owner", owner.ID).Logger()

	outcomes := make([]ports.ItemOutcome, len(rows))
	payloads := make([]domain.NewCourse, len(rows))
	pending := make([]int, 0, len(rows))

	for i, row := range rows {
		payload, err := b.normalizer.Normalize(row)
		if err != nil {
			outcomes[i] = failedItem(i, "", err)
			continue
		}
		payloads[i] = payload
		pending = append(pending, i)
		// Overwritten by the task; survives only if the task never runs.
		outcomes[i] = ports.ItemOutcome{Index: i, Kind: domain.KindBatchAborted, Detail: "not processed"}
	}

	runErr := b.pool.Run(ctx, len(pending), func(ctx context.Context, j int) {
		i := pending[j]
		course, err := b.creator.create(ctx, payloads[i], owner)
		if err != nil {
			outcomes[i] = failedItem(i, "", err)
			return
		}
		outcomes[i] = ports.ItemOutcome{Index: i, CourseID: course.ID, Course: course}
	})

	result := &ports.BatchResult{BatchID: batchID, Items: make([]ports.ItemOutcome, 0, len(rows))}
	for _, o := range outcomes {
		result.Record(o)
		if o.OK() {
			metrics.BatchItemsTotal.WithLabelValues("import", "ok").Inc()
		} else {
			metrics.BatchItemsTotal.WithLabelValues("import", o.Kind).Inc()
			log.Warn().Int("row", o.Index).Str("kind", o.Kind).Str("detail", o.Detail).Msg("import row failed")
		}
	}
	metrics.BatchDuration.WithLabelValues("import").Observe(time.Since(start).Seconds())

	if runErr != nil {
		log.Error().Err(runErr).Int("succeeded", result.Succeeded).Msg("import batch aborted")
		return result, &domain.Error{Kind: domain.ErrBatchAborted, Detail: "import dispatch failed", Cause: runErr}
	}

	log.Info().Int("rows", len(rows)).Int("succeeded", result.Succeeded).Int("failed", result.Failed).Msg("import finished")
	return result, nil
}

func failedItem(i int, courseID string, err error) ports.ItemOutcome {
	return ports.ItemOutcome{
		Index:    i,
		CourseID: courseID,
		Kind:     domain.KindOf(err),
		Detail:   domain.DetailOf(err),
	}
}
