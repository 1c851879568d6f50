package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blogem/github-login/models"
)

// ClientConfigRepository interface defines client config persistence.
// Persistence is a whole-list snapshot: ReplaceAll overwrites everything
// that was stored before, so concurrent writers race and the last one
// wins. There is no incremental update.
type ClientConfigRepository interface {
	LoadAll(ctx context.Context) ([]models.ClientConfig, error)
	ReplaceAll(ctx context.Context, configs []models.ClientConfig) error
}

// clientConfigRepository implements ClientConfigRepository interface
type clientConfigRepository struct {
	db *sql.DB
}

// NewClientConfigRepository creates a new client config repository
func NewClientConfigRepository(db *sql.DB) ClientConfigRepository {
	return &clientConfigRepository{db: db}
}

// LoadAll retrieves all persisted client configs in registration order
func (r *clientConfigRepository) LoadAll(ctx context.Context) ([]models.ClientConfig, error) {
	query := `
		SELECT app_id, client_id, client_secret, callback, one_time, expiration
		FROM client_configs
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query client configs: %w", err)
	}
	defer rows.Close()

	var configs []models.ClientConfig
	for rows.Next() {
		var config models.ClientConfig
		var expiration sql.NullTime

		err := rows.Scan(
			&config.AppID,
			&config.ClientID,
			&config.ClientSecret,
			&config.Callback,
			&config.OneTime,
			&expiration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client config: %w", err)
		}

		if expiration.Valid {
			t := expiration.Time
			config.Expiration = &t
		}

		configs = append(configs, config)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client configs: %w", err)
	}

	return configs, nil
}

// ReplaceAll overwrites the stored list with the given configs in one
// transaction
func (r *clientConfigRepository) ReplaceAll(ctx context.Context, configs []models.ClientConfig) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM client_configs"); err != nil {
		return fmt.Errorf("failed to clear client configs: %w", err)
	}

	insert := `
		INSERT INTO client_configs (position, app_id, client_id, client_secret, callback, one_time, expiration)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i, config := range configs {
		var expiration sql.NullTime
		if config.Expiration != nil {
			expiration = sql.NullTime{Time: *config.Expiration, Valid: true}
		}

		_, err := tx.ExecContext(ctx, insert,
			i,
			config.AppID,
			config.ClientID,
			config.ClientSecret,
			config.Callback,
			config.OneTime,
			expiration,
		)
		if err != nil {
			return fmt.Errorf("failed to insert client config %s: %w", config.AppID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client configs: %w", err)
	}

	return nil
}
