package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"practiceapp/internal/models"
	"practiceapp/internal/observability"
	contextutils "practiceapp/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QuestionServiceInterface defines the interface for question bank operations
type QuestionServiceInterface interface {
	ResolveLanguage(ctx context.Context, code string) (*models.Language, error)
	ListLanguages(ctx context.Context) ([]models.Language, error)
	AllocateQuestions(ctx context.Context, languageID, count int, excludeIDs []int) ([]models.Question, error)
	GetQuestionByID(ctx context.Context, id int) (*models.Question, error)
	GetQuestionsByIDs(ctx context.Context, ids []int) (map[int]*models.Question, error)
	CreateQuestion(ctx context.Context, q *models.Question) (*models.Question, error)
	CreateLanguage(ctx context.Context, code, name string) (*models.Language, error)
}

// QuestionService implements question bank access over PostgreSQL
type QuestionService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewQuestionService creates a new QuestionService instance
func NewQuestionService(db *sql.DB, logger *observability.Logger) *QuestionService {
	return &QuestionService{
		db:     db,
		logger: logger,
	}
}

const questionColumns = "id, language_id, type, prompt, options, correct_answer, COALESCE(explanation, ''), created_at"

// ResolveLanguage looks up a language by its code
func (s *QuestionService) ResolveLanguage(ctx context.Context, code string) (result0 *models.Language, err error) {
	ctx, span := otel.Tracer("question-service").Start(ctx, "ResolveLanguage",
		trace.WithAttributes(observability.AttributeLanguage(code)),
	)
	defer observability.FinishSpan(span, &err)

	var lang models.Language
	err = s.db.QueryRowContext(ctx,
		"SELECT id, code, name, created_at FROM languages WHERE code = $1", code,
	).Scan(&lang.ID, &lang.Code, &lang.Name, &lang.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrLanguageNotResolved
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to resolve language")
	}
	return &lang, nil
}

// ListLanguages returns all languages ordered by code
func (s *QuestionService) ListLanguages(ctx context.Context) (result0 []models.Language, err error) {
	ctx, span := otel.Tracer("question-service").Start(ctx, "ListLanguages")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, "SELECT id, code, name, created_at FROM languages ORDER BY code")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list languages")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var languages []models.Language
	for rows.Next() {
		var lang models.Language
		if err := rows.Scan(&lang.ID, &lang.Code, &lang.Name, &lang.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan language")
		}
		languages = append(languages, lang)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate languages")
	}
	return languages, nil
}

// AllocateQuestions selects up to count questions for a language, preferring
// questions outside excludeIDs. When the unseen pool runs dry it tops up from
// the full bank, still skipping questions already chosen in this allocation.
// Returns fewer than count (possibly zero) when the bank itself is smaller.
func (s *QuestionService) AllocateQuestions(ctx context.Context, languageID, count int, excludeIDs []int) (result0 []models.Question, err error) {
	ctx, span := otel.Tracer("question-service").Start(ctx, "AllocateQuestions",
		trace.WithAttributes(
			attribute.Int("language.id", languageID),
			observability.AttributeLimit(count),
			attribute.Int("exclude.count", len(excludeIDs)),
		),
	)
	defer observability.FinishSpan(span, &err)

	if count <= 0 {
		return nil, nil
	}

	questions, err := s.queryQuestionsExcluding(ctx, languageID, count, excludeIDs)
	if err != nil {
		return nil, err
	}

	if len(questions) < count {
		chosen := make([]int, 0, len(questions))
		for _, q := range questions {
			chosen = append(chosen, q.ID)
		}

		topUp, err := s.queryQuestionsExcluding(ctx, languageID, count-len(questions), chosen)
		if err != nil {
			return nil, err
		}
		questions = append(questions, topUp...)
	}

	span.SetAttributes(observability.AttributeCount(len(questions)))
	return questions, nil
}

// queryQuestionsExcluding fetches questions for a language skipping the given
// ids, in stable id order.
func (s *QuestionService) queryQuestionsExcluding(ctx context.Context, languageID, limit int, excludeIDs []int) ([]models.Question, error) {
	// pq.Array of an empty slice yields an empty postgres array, so the
	// NOT ANY clause is a no-op rather than a syntax error.
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE language_id = $1 AND NOT (id = ANY($2)) ORDER BY id LIMIT $3",
		languageID, pq.Array(excludeIDs), limit,
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate questions")
	}
	return questions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var optionsJSON []byte
	if err := row.Scan(&q.ID, &q.LanguageID, &q.Type, &q.Prompt, &optionsJSON, &q.CorrectAnswer, &q.Explanation, &q.CreatedAt); err != nil {
		return nil, contextutils.WrapError(err, "failed to scan question")
	}
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, contextutils.WrapError(err, "failed to decode question options")
		}
	}
	return &q, nil
}

// GetQuestionByID retrieves a single question
func (s *QuestionService) GetQuestionByID(ctx context.Context, id int) (result0 *models.Question, err error) {
	ctx, span := otel.Tracer("question-service").Start(ctx, "GetQuestionByID",
		trace.WithAttributes(observability.AttributeQuestionID(id)),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx, "SELECT "+questionColumns+" FROM questions WHERE id = $1", id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrQuestionNotFound
		}
		return nil, err
	}
	return q, nil
}

// GetQuestionsByIDs retrieves a batch of questions keyed by id
func (s *QuestionService) GetQuestionsByIDs(ctx context.Context, ids []int) (result0 map[int]*models.Question, err error) {
	ctx, span := otel.Tracer("question-service").Start(ctx, "GetQuestionsByIDs",
		trace.WithAttributes(attribute.Int("ids.count", len(ids))),
	)
	defer observability.FinishSpan(span, &err)

	result := make(map[int]*models.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query questions by ids")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		result[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate questions")
	}
	return result, nil
}

// CreateQuestion inserts a new question into the bank
func (s *QuestionService) CreateQuestion(ctx context.Context, q *models.Question) (result0 *models.Question, err error) {
	ctx, span := otel.Tracer("question-service").Start(ctx, "CreateQuestion",
		trace.WithAttributes(
			attribute.Int("language.id", q.LanguageID),
			attribute.String("question.type", q.Type),
		),
	)
	defer observability.FinishSpan(span, &err)

	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to encode question options")
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO questions (language_id, type, prompt, options, correct_answer, explanation)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		q.LanguageID, q.Type, q.Prompt, optionsJSON, q.CorrectAnswer, q.Explanation,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert question")
	}

	s.logger.Info(ctx, "Question created", map[string]interface{}{
		"question_id": q.ID,
		"language_id": q.LanguageID,
		"type":        q.Type,
	})
	return q, nil
}

// CreateLanguage inserts a language, returning the existing row on conflict
func (s *QuestionService) CreateLanguage(ctx context.Context, code, name string) (result0 *models.Language, err error) {
	ctx, span := otel.Tracer("question-service").Start(ctx, "CreateLanguage",
		trace.WithAttributes(observability.AttributeLanguage(code)),
	)
	defer observability.FinishSpan(span, &err)

	var lang models.Language
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO languages (code, name) VALUES ($1, $2)
		 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, code, name, created_at`,
		code, name,
	).Scan(&lang.ID, &lang.Code, &lang.Name, &lang.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to upsert language")
	}
	return &lang, nil
}
