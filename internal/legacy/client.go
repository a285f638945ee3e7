// Package legacy provides read-only connectivity to the retired MS SQL
// service-desk system. Its only job today is reporting the highest case
// number each type prefix ever reached, so new sequences are seeded above
// historical tickets and codes never collide with printed paperwork.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/coretrack/warranty-api/internal/config"
	"github.com/coretrack/warranty-api/internal/sequence"
	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"go.uber.org/zap"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	defaultHealthCheckTimeout = 5 * time.Second
)

// Client is a read-only connection to the legacy service-desk database
type Client struct {
	db           *sql.DB
	config       *config.LegacyConfig
	logger       *zap.Logger
	queryTimeout time.Duration
}

// HealthStatus is the health check result for the legacy connection
type HealthStatus struct {
	Status     string        `json:"status"`
	Latency    time.Duration `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
	MaxOpen    int           `json:"max_open_connections"`
	Open       int           `json:"open_connections"`
	InUse      int           `json:"in_use"`
	Idle       int           `json:"idle"`
	WaitCount  int64         `json:"wait_count"`
	WaitTimeMs int64         `json:"wait_time_ms"`
}

// NewClient connects to the legacy database with retry and pooling.
// Returns nil when the connection is disabled or unconfigured; every
// method on a nil client degrades gracefully.
func NewClient(cfg *config.LegacyConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("legacy system connection disabled")
		return nil, nil
	}
	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("legacy system enabled but missing credentials, skipping connection",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""))
		return nil, nil
	}

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	var db *sql.DB
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		logger.Info("attempting legacy system connection",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", defaultMaxRetries))

		db, err = sql.Open("sqlserver", connStr)
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

			pingCtx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				logger.Info("legacy system connection established", zap.Int("attempts_taken", attempt))
				return &Client{
					db:           db,
					config:       cfg,
					logger:       logger,
					queryTimeout: cfg.QueryTimeoutDuration(),
				}, nil
			}
			_ = db.Close()
		}

		logger.Warn("legacy system connection failed",
			zap.Error(err),
			zap.Int("attempt", attempt))
		if attempt < defaultMaxRetries {
			time.Sleep(backoff)
			backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
		}
	}

	return nil, fmt.Errorf("failed to connect to legacy system after %d attempts: %w", defaultMaxRetries, err)
}

// buildConnectionString builds the sqlserver URL from host:port/database
func buildConnectionString(cfg *config.LegacyConfig) (string, error) {
	urlParts := strings.SplitN(cfg.URL, "/", 2)
	hostPort := urlParts[0]
	database := ""
	if len(urlParts) > 1 {
		database = urlParts[1]
	}

	hostParts := strings.SplitN(hostPort, ":", 2)
	host := hostParts[0]
	port := "1433"
	if len(hostParts) > 1 {
		port = hostParts[1]
	}

	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	if database != "" {
		query.Add("database", database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

// Close shuts the connection down during application shutdown
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close legacy system connection: %w", err)
	}
	return nil
}

// IsEnabled reports whether the client holds a live connection
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}

// HealthCheck pings the legacy database and reports pool statistics
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil || c.db == nil {
		return &HealthStatus{Status: "disabled"}
	}

	start := time.Now()
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	stats := c.db.Stats()
	status := &HealthStatus{
		Latency:    latency,
		MaxOpen:    stats.MaxOpenConnections,
		Open:       stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
		WaitTimeMs: stats.WaitDuration.Milliseconds(),
	}
	if err != nil {
		c.logger.Warn("legacy system health check failed",
			zap.Error(err),
			zap.Duration("latency", latency))
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
	}
	return status
}

// MaxCaseNumber returns the highest numeric suffix the legacy system ever
// issued under the given case code prefix, or zero when none exist. Ticket
// numbers in the legacy schema share the PREFIX_NNNNNN format.
func (c *Client) MaxCaseNumber(ctx context.Context, prefix string) (int, error) {
	if c == nil || c.db == nil {
		return 0, fmt.Errorf("legacy client not initialized")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	// ESCAPE so the underscore in the prefix separator matches literally
	query := `SELECT ticket_number FROM dbo.service_tickets WHERE ticket_number LIKE @p1 ESCAPE '\'`
	rows, err := c.db.QueryContext(ctx, query, prefix+`\_%`)
	if err != nil {
		return 0, fmt.Errorf("legacy ticket query failed: %w", err)
	}
	defer rows.Close()

	maxN := 0
	for rows.Next() {
		var ticket string
		if err := rows.Scan(&ticket); err != nil {
			return 0, fmt.Errorf("failed to scan ticket number: %w", err)
		}
		if n, ok := sequence.ParseNumber(ticket, prefix); ok && n > maxN {
			maxN = n
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating tickets: %w", err)
	}

	c.logger.Debug("legacy max case number resolved",
		zap.String("prefix", prefix),
		zap.Int("max", maxN))
	return maxN, nil
}
