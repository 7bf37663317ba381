package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		product_name TEXT NOT NULL,
		brand_name TEXT NOT NULL,
		platform TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		average_sentiment REAL,
		total_posts INTEGER,
		negative_percentage REAL,
		predicted_drop REAL,
		loss_probability REAL,
		risk_level TEXT,
		explanation TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_session ON analysis_runs(session_id);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_product ON analysis_runs(product_name, brand_name);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		provider TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_messages(session_id, created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) RecordRun(ctx context.Context, run *models.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (id, session_id, product_name, brand_name, platform, start_date, end_date,
			status, error_message, average_sentiment, total_posts, negative_percentage, predicted_drop,
			loss_probability, risk_level, explanation, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.SessionID,
		run.ProductName,
		run.BrandName,
		run.Platform,
		run.StartDate,
		run.EndDate,
		run.Status,
		nullString(run.ErrorMessage),
		run.AverageSentiment,
		run.TotalPosts,
		run.NegativePercentage,
		run.PredictedDrop,
		run.LossProbability,
		nullString(run.RiskLevel),
		nullString(run.Explanation),
		run.LatencyMS,
		run.CreatedAt.UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}

	logger.Debug("Analysis run recorded",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
	)
	return nil
}

// ListRuns returns the newest runs first. An empty sessionID lists every session.
func (c *Client) ListRuns(ctx context.Context, sessionID string, limit int) ([]models.AnalysisRun, error) {
	query := `
		SELECT id, session_id, product_name, brand_name, platform, start_date, end_date, status,
			error_message, average_sentiment, total_posts, negative_percentage, predicted_drop,
			loss_probability, risk_level, explanation, latency_ms, created_at
		FROM analysis_runs
		WHERE (? = '' OR session_id = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		var r models.AnalysisRun
		var (
			sessionID, errorMessage, riskLevel, explanation sql.NullString
			avg, negative, drop, probability                sql.NullFloat64
			totalPosts, latency                             sql.NullInt64
			createdAt                                       int64
		)

		err := rows.Scan(&r.ID, &sessionID, &r.ProductName, &r.BrandName, &r.Platform, &r.StartDate, &r.EndDate,
			&r.Status, &errorMessage, &avg, &totalPosts, &negative, &drop, &probability, &riskLevel,
			&explanation, &latency, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.SessionID = sessionID.String
		r.ErrorMessage = errorMessage.String
		r.RiskLevel = riskLevel.String
		r.Explanation = explanation.String
		r.LatencyMS = int(latency.Int64)
		r.AverageSentiment = floatPtr(avg)
		r.NegativePercentage = floatPtr(negative)
		r.PredictedDrop = floatPtr(drop)
		r.LossProbability = floatPtr(probability)
		if totalPosts.Valid {
			n := int(totalPosts.Int64)
			r.TotalPosts = &n
		}
		r.CreatedAt = time.UnixMilli(createdAt)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis runs: %w", err)
	}

	return runs, nil
}

func (c *Client) InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `INSERT INTO chat_messages (id, session_id, role, content, provider, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.ExecContext(
		ctx,
		query,
		msg.ID,
		msg.SessionID,
		msg.Role,
		msg.Content,
		nullString(msg.Provider),
		msg.CreatedAt.UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}

	return nil
}

// ChatHistory returns the last limit messages of a session, oldest first.
func (c *Client) ChatHistory(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, provider, created_at FROM (
			SELECT id, session_id, role, content, provider, created_at, rowid
			FROM chat_messages
			WHERE session_id = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		) ORDER BY created_at ASC, rowid ASC
	`

	rows, err := c.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var provider sql.NullString
		var createdAt int64

		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &provider, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		m.Provider = provider.String
		m.CreatedAt = time.UnixMilli(createdAt)
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat history: %w", err)
	}

	return messages, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
