package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examina/examina-backend/internal/backend"
	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AnswerWorker consumes the persist-answers queue and UPSERTs answer rows to
// PostgreSQL. Buffering writes through Redis keeps answer submission off the
// exam-taking hot path.
type AnswerWorker struct {
	answers *repository.AnswerRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(answers *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		answers: answers,
		rdb:     rdb,
		log:     log.With().Str("component", "answer_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload backend.AnswerQueuePayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persist(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("session_id", payload.SessionID).
			Str("question_id", payload.QuestionID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *AnswerWorker) persist(ctx context.Context, p *backend.AnswerQueuePayload) error {
	answer, err := decodePayload(p)
	if err != nil {
		return err
	}
	return w.answers.Upsert(ctx, answer)
}

func decodePayload(p *backend.AnswerQueuePayload) (*repository.SessionAnswer, error) {
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return nil, err
	}
	testID, err := uuid.Parse(p.TestID)
	if err != nil {
		return nil, err
	}
	questionID, err := uuid.Parse(p.QuestionID)
	if err != nil {
		return nil, err
	}

	optionIDs := make([]uuid.UUID, 0, len(p.OptionIDs))
	for _, raw := range p.OptionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		optionIDs = append(optionIDs, id)
	}

	return &repository.SessionAnswer{
		SessionID:  sessionID,
		TestID:     testID,
		QuestionID: questionID,
		OptionIDs:  optionIDs,
	}, nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var payload backend.AnswerQueuePayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persist(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained queued answers")
	}
}
