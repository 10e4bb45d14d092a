// Package dispatchledger provides read-only connectivity to the MS SQL Server
// dispatch ledger operated by the logistics vendor. Challan rows recorded
// there are polled and mirrored into order delivery metrics.
package dispatchledger

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"github.com/techhind/fulfillment-api/internal/config"
	"github.com/techhind/fulfillment-api/internal/domain"
	"go.uber.org/zap"
)

const (
	// Default retry configuration for connection attempts
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	// Default health check timeout
	defaultHealthCheckTimeout = 5 * time.Second
)

// Client provides read-only access to the vendor dispatch ledger.
// It manages connection pooling and maps challan rows to domain events.
type Client struct {
	db           *sql.DB
	config       *config.DispatchLedgerConfig
	logger       *zap.Logger
	queryTimeout time.Duration
}

// HealthStatus represents the health check result for the ledger connection
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

// NewClient creates a new dispatch ledger client with the given configuration.
// Returns nil if the ledger is not enabled or not configured.
// The client establishes a connection pool with retry logic for transient failures.
func NewClient(cfg *config.DispatchLedgerConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Dispatch ledger connection disabled")
		return nil, nil
	}

	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("Dispatch ledger enabled but missing credentials, skipping connection",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}

	logger.Info("Initializing dispatch ledger connection",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Int("conn_max_lifetime_seconds", cfg.ConnMaxLifetime),
		zap.Int("query_timeout_seconds", cfg.QueryTimeout),
	)

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	// Attempt connection with retry logic
	var db *sql.DB
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		logger.Info("Attempting dispatch ledger connection",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", defaultMaxRetries),
		)

		db, err = sql.Open("sqlserver", connStr)
		if err != nil {
			logger.Warn("Failed to open dispatch ledger connection",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

		ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
		err = db.PingContext(ctx)
		cancel()

		if err != nil {
			logger.Warn("Dispatch ledger ping failed",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			_ = db.Close()
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		logger.Info("Dispatch ledger connection established successfully",
			zap.Int("attempts_taken", attempt),
		)

		return &Client{
			db:           db,
			config:       cfg,
			logger:       logger,
			queryTimeout: cfg.QueryTimeoutDuration(),
		}, nil
	}

	return nil, fmt.Errorf("failed to connect to dispatch ledger after %d attempts: %w", defaultMaxRetries, err)
}

// buildConnectionString constructs a SQL Server connection string from the config.
// URL format expected: host:port/database or host:port (uses default database)
func buildConnectionString(cfg *config.DispatchLedgerConfig) (string, error) {
	urlParts := strings.SplitN(cfg.URL, "/", 2)
	hostPort := urlParts[0]
	database := ""
	if len(urlParts) > 1 {
		database = urlParts[1]
	}

	hostParts := strings.SplitN(hostPort, ":", 2)
	host := hostParts[0]
	port := "1433" // Default SQL Server port
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

// Close gracefully closes the dispatch ledger connection.
// Should be called during application shutdown.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}

	c.logger.Info("Closing dispatch ledger connection")

	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close dispatch ledger connection", zap.Error(err))
		return fmt.Errorf("failed to close dispatch ledger connection: %w", err)
	}

	c.logger.Info("Dispatch ledger connection closed successfully")
	return nil
}

// HealthCheck performs a health check on the dispatch ledger connection.
// Returns detailed status including connection pool statistics.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil || c.db == nil {
		return &HealthStatus{
			Status: "disabled",
		}
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
		c.logger.Warn("Dispatch ledger health check failed",
			zap.Error(err),
			zap.Duration("latency", latency),
		)
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
	}

	return status
}

// IsEnabled returns true if the client is initialized and ready for queries.
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}

// FetchChallansSince returns challan rows recorded in the ledger strictly
// after the given timestamp, oldest first. Rows the ledger has not yet linked
// to an order id are skipped and logged; the caller's watermark moves past
// them, so backfilled references need a manual replay from an earlier since.
func (c *Client) FetchChallansSince(ctx context.Context, since time.Time) ([]domain.ChallanEvent, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("dispatch ledger client not initialized")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	query := fmt.Sprintf(`
		SELECT challan_no, order_ref, entry_type, quantity, recorded_at
		FROM %s
		WHERE recorded_at > @p1
		ORDER BY recorded_at ASC`, c.config.ChallanTable)

	c.logger.Debug("Fetching challans from dispatch ledger",
		zap.Time("since", since),
	)

	start := time.Now()

	rows, err := c.db.QueryContext(ctx, query, since)
	if err != nil {
		c.logger.Error("Dispatch ledger query failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	var events []domain.ChallanEvent
	skipped := 0

	for rows.Next() {
		var (
			challanNo  string
			orderRef   sql.NullString
			entryType  string
			quantity   float64
			recordedAt time.Time
		)
		if err := rows.Scan(&challanNo, &orderRef, &entryType, &quantity, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan challan row: %w", err)
		}

		if !orderRef.Valid {
			skipped++
			continue
		}
		orderID, err := uuid.Parse(orderRef.String)
		if err != nil {
			c.logger.Warn("Skipping challan with malformed order reference",
				zap.String("challan_no", challanNo),
				zap.String("order_ref", orderRef.String),
			)
			skipped++
			continue
		}

		events = append(events, domain.ChallanEvent{
			OrderID:    orderID,
			EventID:    challanNo,
			Type:       mapEntryType(entryType),
			Quantity:   quantity,
			OccurredAt: recordedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challan rows: %w", err)
	}

	c.logger.Debug("Dispatch ledger fetch completed",
		zap.Int("events", len(events)),
		zap.Int("skipped", skipped),
		zap.Duration("duration", time.Since(start)),
	)

	return events, nil
}

// mapEntryType converts the ledger's entry type codes to challan event types.
// The vendor records "DSP" for dispatches and "RTN" for returns; anything
// else is treated as a dispatch, matching the ledger's historical default.
func mapEntryType(entryType string) domain.ChallanEventType {
	switch strings.ToUpper(strings.TrimSpace(entryType)) {
	case "RTN":
		return domain.ChallanEventReturn
	default:
		return domain.ChallanEventDispatch
	}
}
