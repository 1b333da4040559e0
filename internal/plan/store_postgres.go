package plan

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

const dbTimeout = 5 * time.Second

//go:embed schema.sql
var schemaSQL string

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed plan store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the plan tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	slog.Info("plan schema applied")
	return nil
}

func (s *PostgresStore) CreatePlan(ctx context.Context, p Plan) (string, error) {
	if err := validatePlan(p); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var planID string
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO study_plans (user_id, title, goal, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id::text`,
			p.UserID,
			p.Title,
			p.Goal,
			p.StartDate,
			p.EndDate,
		).Scan(&planID); err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}

		subjectIDs := make(map[string]string, len(p.Subjects))
		for i, sub := range p.Subjects {
			var id string
			if err := tx.QueryRow(ctx,
				`INSERT INTO subjects (plan_id, name, topics, position)
				 VALUES ($1::uuid, $2, $3, $4)
				 RETURNING id::text`,
				planID,
				sub.Name,
				sub.Topics,
				i,
			).Scan(&id); err != nil {
				return fmt.Errorf("insert subject %q: %w", sub.Name, err)
			}
			subjectIDs[sub.Name] = id
		}

		batch := &pgx.Batch{}
		for i, t := range p.Tasks {
			sid, ok := subjectIDs[t.SubjectName]
			if !ok {
				return fmt.Errorf("task %d: unknown subject %q", i, t.SubjectName)
			}
			batch.Queue(
				`INSERT INTO tasks (plan_id, subject_id, description, reference, difficulty, due_date, position, is_completed)
				 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8)`,
				planID,
				sid,
				t.Description,
				t.Reference,
				int(t.Difficulty),
				t.DueDate,
				t.Position,
				t.Completed,
			)
		}
		if batch.Len() == 0 {
			return nil
		}

		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert task %d: %w", i, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return "", fmt.Errorf("create plan: %w", err)
	}

	return planID, nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, id string) (*Plan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: plan %s", ErrNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p := &Plan{}
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, user_id, title, goal, start_date, end_date, created_at
		 FROM study_plans
		 WHERE id = $1::uuid`,
		id,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Goal, &p.StartDate, &p.EndDate, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: plan %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}

	subjects, err := s.subjects(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Subjects = subjects[p.ID]

	rows, err := s.pool.Query(ctx,
		taskSelect+` WHERE t.plan_id = $1::uuid ORDER BY t.due_date ASC, t.position ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	p.Tasks, err = scanTasks(rows)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListPlans(ctx context.Context, userID string) ([]Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, title, goal, start_date, end_date, created_at
		 FROM study_plans
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	plans := []Plan{}
	var ids []string
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Goal, &p.StartDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	if len(ids) == 0 {
		return plans, nil
	}

	subjects, err := s.subjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		plans[i].Subjects = subjects[plans[i].ID]
	}
	return plans, nil
}

func (s *PostgresStore) TasksDue(ctx context.Context, userID string, date time.Time) ([]Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		taskSelect+`
		 JOIN study_plans p ON p.id = t.plan_id
		 WHERE p.user_id = $1 AND t.due_date = $2::date
		 ORDER BY p.created_at ASC, t.position ASC`,
		userID,
		planner.FormatDate(date),
	)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	return scanTasks(rows)
}

func (s *PostgresStore) SetTaskCompleted(ctx context.Context, taskID string, completed bool) error {
	if _, err := uuid.Parse(taskID); err != nil {
		return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE tasks SET is_completed = $2 WHERE id = $1::uuid`,
		taskID,
		completed,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	return nil
}

const taskSelect = `SELECT t.id::text, t.plan_id::text, t.subject_id::text, s.name, t.description, t.reference,
		t.difficulty, t.due_date, t.position, t.is_completed
	 FROM tasks t
	 JOIN subjects s ON s.id = t.subject_id`

func scanTasks(rows pgx.Rows) ([]Task, error) {
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		var difficulty int16
		if err := rows.Scan(
			&t.ID,
			&t.PlanID,
			&t.SubjectID,
			&t.SubjectName,
			&t.Description,
			&t.Reference,
			&difficulty,
			&t.DueDate,
			&t.Position,
			&t.Completed,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Difficulty = curriculum.Difficulty(difficulty)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *PostgresStore) subjects(ctx context.Context, planIDs []string) (map[string][]Subject, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT plan_id::text, id::text, name, topics
		 FROM subjects
		 WHERE plan_id::text = ANY($1)
		 ORDER BY plan_id, position`,
		planIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Subject, len(planIDs))
	for rows.Next() {
		var planID string
		var sub Subject
		if err := rows.Scan(&planID, &sub.ID, &sub.Name, &sub.Topics); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out[planID] = append(out[planID], sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}
