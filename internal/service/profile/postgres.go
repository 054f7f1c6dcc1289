package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/janisto/engineer-profiles/internal/nickname"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	"github.com/janisto/engineer-profiles/internal/platform/retry"
	"github.com/janisto/engineer-profiles/internal/platform/timeutil"
)

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RemoteConfig bounds every remote call. Each attempt gets its own timeout.
type RemoteConfig struct {
	CreateTimeout time.Duration
	UpdateTimeout time.Duration
	LookupTimeout time.Duration
	Retry         retry.Options
}

// DefaultRemoteConfig returns 10s for inserts, 5s for everything else and
// two retries with exponential backoff from 1s.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		CreateTimeout: 10 * time.Second,
		UpdateTimeout: 5 * time.Second,
		LookupTimeout: 5 * time.Second,
		Retry:         retry.DefaultOptions(),
	}
}

// PostgresStore implements Repository on a single profiles table.
type PostgresStore struct {
	db  DB
	cfg RemoteConfig
	now func() time.Time
}

func NewPostgresStore(db DB, cfg RemoteConfig) *PostgresStore {
	return &PostgresStore{db: db, cfg: cfg, now: timeutil.StoreNow}
}

// uniqueViolation is SQLSTATE unique_violation.
const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL,
		nickname            TEXT,
		name                TEXT NOT NULL,
		job_title           TEXT NOT NULL,
		bio                 TEXT NOT NULL DEFAULT '',
		image_url           TEXT NOT NULL DEFAULT '',
		skills              TEXT[] NOT NULL DEFAULT '{}',
		years_of_experience INTEGER CHECK (years_of_experience BETWEEN 0 AND 100),
		social_links        JSONB NOT NULL DEFAULT '[]',
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS profiles_nickname_lower_key
		ON profiles (lower(nickname)) WHERE nickname IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS profiles_user_id_idx ON profiles (user_id)`,
	`CREATE INDEX IF NOT EXISTS profiles_created_at_idx ON profiles (created_at DESC)`,
}

// Migrate creates the schema. It is safe to run on every start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			se := newStoreError(StoreErrorKindUnknown, "migrate", err)
			logStoreError(ctx, "postgres", se)
			return se
		}
	}
	applog.LogInfo(ctx, "profile schema ready")
	return nil
}

const profileColumns = `id, user_id, nickname, name, job_title, bio, image_url,
	skills, years_of_experience, social_links, created_at, updated_at`

const insertProfile = `INSERT INTO profiles (` + profileColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		user_id = EXCLUDED.user_id,
		nickname = EXCLUDED.nickname,
		name = EXCLUDED.name,
		job_title = EXCLUDED.job_title,
		bio = EXCLUDED.bio,
		image_url = EXCLUDED.image_url,
		skills = EXCLUDED.skills,
		years_of_experience = EXCLUDED.years_of_experience,
		social_links = EXCLUDED.social_links,
		updated_at = EXCLUDED.updated_at`

const updateProfile = `UPDATE profiles SET
		user_id = $2,
		nickname = $3,
		name = $4,
		job_title = $5,
		bio = $6,
		image_url = $7,
		skills = $8,
		years_of_experience = $9,
		social_links = $10,
		updated_at = $12
	WHERE id = $1`

// Save probes FindByID to choose between insert and update. The insert
// upserts on id, so a retried insert whose first attempt landed late is
// harmless.
func (s *PostgresStore) Save(ctx context.Context, p *Profile) (*Profile, error) {
	var existing *Profile
	if p.ID != "" {
		found, err := s.FindByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		existing = found
	}

	stored := prepareForSave(p, existing, s.now())
	args, err := profileArgs(stored)
	if err != nil {
		se := newStoreError(StoreErrorKindUnknown, "save", err)
		logStoreError(ctx, "postgres", se)
		return nil, se
	}

	if existing == nil {
		_, err = run(ctx, s, "insert", s.cfg.CreateTimeout, func(ctx context.Context) (struct{}, error) {
			_, err := s.db.Exec(ctx, insertProfile, args...)
			return struct{}{}, err
		})
	} else {
		_, err = run(ctx, s, "update", s.cfg.UpdateTimeout, func(ctx context.Context) (struct{}, error) {
			tag, err := s.db.Exec(ctx, updateProfile, args...)
			if err == nil && tag.RowsAffected() == 0 {
				return struct{}{}, newStoreError(StoreErrorKindNotFound, "update", nil)
			}
			return struct{}{}, err
		})
	}
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	return s.findOne(ctx, "find_by_id",
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (s *PostgresStore) FindByUserID(ctx context.Context, userID string) (*Profile, error) {
	return s.findOne(ctx, "find_by_user_id",
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1
		ORDER BY created_at, id COLLATE "C" LIMIT 1`, userID)
}

func (s *PostgresStore) FindByNickname(ctx context.Context, name string) (*Profile, error) {
	if name == "" {
		return nil, nil
	}
	return s.findOne(ctx, "find_by_nickname",
		`SELECT `+profileColumns+` FROM profiles WHERE lower(nickname) = $1`, nickname.Normalize(name))
}

func (s *PostgresStore) IsNicknameAvailable(ctx context.Context, name, excludeUserID string) (bool, error) {
	if name == "" {
		return true, nil
	}
	taken, err := s.exists(ctx, "is_nickname_available",
		`SELECT EXISTS (SELECT 1 FROM profiles
			WHERE lower(nickname) = $1 AND ($2 = '' OR user_id <> $2))`,
		nickname.Normalize(name), excludeUserID)
	return !taken && err == nil, err
}

func (s *PostgresStore) CheckNicknameDuplicate(ctx context.Context, name, excludeProfileID string) (bool, error) {
	if name == "" {
		return false, nil
	}
	return s.exists(ctx, "check_nickname_duplicate",
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE lower(nickname) = $1 AND id <> $2)`,
		nickname.Normalize(name), excludeProfileID)
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]*Profile, error) {
	return run(ctx, s, "find_all", s.cfg.LookupTimeout, func(ctx context.Context) ([]*Profile, error) {
		rows, err := s.db.Query(ctx,
			`SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, id COLLATE "C"`)
		if err != nil {
			return nil, err
		}
		out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Profile, error) {
			return scanProfile(row)
		})
		if out == nil {
			out = []*Profile{}
		}
		return out, err
	})
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := run(ctx, s, "delete", s.cfg.UpdateTimeout, func(ctx context.Context) (struct{}, error) {
		tag, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
		if err == nil && tag.RowsAffected() == 0 {
			return struct{}{}, newStoreError(StoreErrorKindNotFound, "delete", nil)
		}
		return struct{}{}, err
	})
	return err
}

func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "exists", `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id)
}

func (s *PostgresStore) findOne(ctx context.Context, op, query string, args ...any) (*Profile, error) {
	return run(ctx, s, op, s.cfg.LookupTimeout, func(ctx context.Context) (*Profile, error) {
		p, err := scanProfile(s.db.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return p, err
	})
}

func (s *PostgresStore) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	return run(ctx, s, op, s.cfg.LookupTimeout, func(ctx context.Context) (bool, error) {
		var found bool
		err := s.db.QueryRow(ctx, query, args...).Scan(&found)
		return found, err
	})
}

// run executes fn under the store's retry and timeout policy, then
// normalizes and logs the final error.
func run[T any](ctx context.Context, s *PostgresStore, op string, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	opts := s.cfg.Retry
	opts.Retryable = retryableDBError
	opts.OnRetry = func(attempt int, err error, delay time.Duration) {
		applog.LogWarn(ctx, "retrying profile store call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	v, err := retry.Do(ctx, opts, func(ctx context.Context) (T, error) {
		return retry.WithTimeout(ctx, timeout, fn)
	})
	if err != nil {
		var zero T
		se := normalizeDBError(op, err)
		logStoreError(ctx, "postgres", se)
		return zero, se
	}
	return v, nil
}

// retryableDBError treats connection loss, serialization failures and
// timeouts as transient. Constraint, data and syntax errors are not.
func retryableDBError(err error) bool {
	var se *StoreError
	if errors.As(err, &se) || errors.Is(err, context.Canceled) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLState(pgErr.Code)
	}
	return retry.IsRetryable(err)
}

func transientSQLState(code string) bool {
	switch code {
	case "40001", "40P01", "57P01", "57P02", "57P03", "53300":
		return true
	}
	return strings.HasPrefix(code, "08")
}

func normalizeDBError(op string, err error) *StoreError {
	var se *StoreError
	if errors.As(err, &se) {
		return se
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return newStoreError(StoreErrorKindDuplicate, op, err)
		}
		if transientSQLState(pgErr.Code) {
			return newStoreError(StoreErrorKindUnavailable, op, err)
		}
		return newStoreError(StoreErrorKindUnknown, op, err)
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, retry.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		pgconn.Timeout(err),
		errors.As(err, &connErr),
		errors.As(err, &netErr):
		return newStoreError(StoreErrorKindUnavailable, op, err)
	}
	return newStoreError(StoreErrorKindUnknown, op, err)
}

func profileArgs(p *Profile) ([]any, error) {
	links, err := json.Marshal(p.SocialLinks)
	if err != nil {
		return nil, err
	}
	var nick *string
	if p.Nickname != "" {
		nick = &p.Nickname
	}
	return []any{
		p.ID, p.UserID, nick, p.Name, p.JobTitle, p.Bio, p.ImageURL,
		p.Skills, p.YearsOfExperience, string(links), p.CreatedAt, p.UpdatedAt,
	}, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p     Profile
		nick  *string
		links []byte
	)
	err := row.Scan(
		&p.ID, &p.UserID, &nick, &p.Name, &p.JobTitle, &p.Bio, &p.ImageURL,
		&p.Skills, &p.YearsOfExperience, &links, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if nick != nil {
		p.Nickname = *nick
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &p.SocialLinks); err != nil {
			return nil, err
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p.Clone(), nil
}

var _ Repository = (*PostgresStore)(nil)
