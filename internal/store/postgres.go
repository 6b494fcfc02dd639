package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailmind/backend/internal/config"
	"github.com/mailmind/backend/internal/models"
)

// PostgresStore is the production credential store backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewConnection creates a new PostgreSQL connection pool with the given configuration.
func NewConnection(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// CloseConnection closes the given database connection pool.
func CloseConnection(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return s.findBy(ctx, `WHERE primary_email = $1`, email)
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	return s.findBy(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) findBy(ctx context.Context, where string, arg any) (*models.Identity, error) {
	var identity models.Identity

	err := s.pool.QueryRow(ctx, `
		SELECT id, display_name, primary_email, created_at, updated_at
		FROM identities
		`+where, arg).Scan(
		&identity.ID,
		&identity.DisplayName,
		&identity.PrimaryEmail,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIdentityNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to query identity: %v", ErrStoreUnavailable, err)
	}

	if err := s.loadCredentials(ctx, &identity); err != nil {
		return nil, err
	}

	return &identity, nil
}

func (s *PostgresStore) loadCredentials(ctx context.Context, identity *models.Identity) error {
	rows, err := s.pool.Query(ctx, `
		SELECT kind, provider_user_id, access_token, refresh_token, expires_at
		FROM provider_credentials
		WHERE identity_id = $1
	`, identity.ID)

	if err != nil {
		return fmt.Errorf("%w: failed to query credentials: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	identity.LinkedProviders = make(map[models.ProviderKind]models.ProviderCredential)
	for rows.Next() {
		var cred models.ProviderCredential
		if err := rows.Scan(
			&cred.Kind,
			&cred.ProviderUserID,
			&cred.AccessToken,
			&cred.RefreshToken,
			&cred.ExpiresAt,
		); err != nil {
			return fmt.Errorf("%w: failed to scan credential: %v", ErrStoreUnavailable, err)
		}
		identity.LinkedProviders[cred.Kind] = cred
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: error iterating credentials: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// UpsertFromProviderLogin runs in a single transaction so that rapid
// re-logins against the same identity serialize on the unique indexes.
// Last write wins.
func (s *PostgresStore) UpsertFromProviderLogin(ctx context.Context, login ProviderLogin) (*models.Identity, error) {
	if !login.Kind.Valid() {
		return nil, fmt.Errorf("unknown provider kind %q", login.Kind)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var identityID string
	err = tx.QueryRow(ctx, `
		INSERT INTO identities (display_name, primary_email)
		VALUES ($1, $2)
		ON CONFLICT (primary_email) DO UPDATE SET
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), identities.display_name),
			updated_at = now()
		RETURNING id
	`, login.DisplayName, login.Email).Scan(&identityID)

	if err != nil {
		return nil, fmt.Errorf("%w: failed to upsert identity: %v", ErrStoreUnavailable, err)
	}

	expiresAt := sanitizeExpiry(login.ExpiresAt, time.Now())

	_, err = tx.Exec(ctx, `
		INSERT INTO provider_credentials (identity_id, kind, provider_user_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identity_id, kind) DO UPDATE SET
			provider_user_id = EXCLUDED.provider_user_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`, identityID, login.Kind, login.ProviderUserID, login.AccessToken, login.RefreshToken, expiresAt)

	if err != nil {
		return nil, fmt.Errorf("%w: failed to upsert credential: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit upsert: %v", ErrStoreUnavailable, err)
	}

	return s.FindByID(ctx, identityID)
}
