package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"khaos-quiz-service/internal/domain"
)

// Directory loads course and user JSONB documents from Postgres.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) LoadCourse(ctx context.Context, courseID string) (domain.Course, error) {
	var raw []byte
	err := d.pool.QueryRow(ctx, `SELECT data FROM courses WHERE id=$1`, courseID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Course{}, domain.ErrKeyNotFound
	}
	if err != nil {
		return domain.Course{}, errors.Wrap(err, "load course")
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		return domain.Course{}, errors.Wrap(err, "unmarshal course")
	}
	course.ID = courseID
	if course.StudentIDs == nil {
		course.StudentIDs = domain.NewIDSet()
	}
	if course.QuizIDs == nil {
		course.QuizIDs = domain.NewIDSet()
	}
	return course, nil
}

// AddQuiz appends quizID to the course's quizIds array unless it is already present.
func (d *Directory) AddQuiz(ctx context.Context, courseID, quizID string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE courses
		SET data = jsonb_set(data, '{quizIds}', COALESCE(data->'quizIds', '[]'::jsonb) || to_jsonb($2::text)),
		    updated_at = now()
		WHERE id = $1 AND NOT (COALESCE(data->'quizIds', '[]'::jsonb) ? $2::text)`, courseID, quizID)
	if err != nil {
		return errors.Wrap(err, "add quiz to course")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id=$1)`, courseID).Scan(&exists); err != nil {
		return errors.Wrapf(err, "check course %s", courseID)
	}
	if !exists {
		return domain.ErrKeyNotFound
	}
	return nil
}

func (d *Directory) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var raw []byte
	err := d.pool.QueryRow(ctx, `SELECT data FROM users WHERE id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrKeyNotFound
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "load user")
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, errors.Wrap(err, "unmarshal user")
	}
	user.ID = userID
	return user, nil
}

// SaveCourse upserts a course document.
func (d *Directory) SaveCourse(ctx context.Context, course domain.Course) error {
	data, err := json.Marshal(course)
	if err != nil {
		return errors.Wrap(err, "marshal course")
	}
	_, err = d.pool.Exec(ctx, `
		INSERT INTO courses (id, data) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, course.ID, string(data))
	if err != nil {
		return errors.Wrap(err, "save course")
	}
	return nil
}

// SaveUser upserts a user document. The user's course must exist.
func (d *Directory) SaveUser(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "marshal user")
	}
	_, err = d.pool.Exec(ctx, `
		INSERT INTO users (id, course_id, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET course_id = EXCLUDED.course_id, data = EXCLUDED.data`, user.ID, user.CourseID, string(data))
	if err != nil {
		return errors.Wrap(err, "save user")
	}
	return nil
}
