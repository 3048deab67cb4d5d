package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ApplicationName   string // пусто - пока не устанавливать

	ConnectRetries int           // 0 - одна попытка
	RetryInterval  time.Duration // начальный интервал между попытками
}

// NewPool - создаёт *pgxpool.Pool с применением настроек и проверкой Ping().
// Пока база поднимается (docker compose), пробуем ещё ConnectRetries раз.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool
	connect := func() error {
		p, err := pgxpool.NewWithConfig(ctx, pc)
		if err != nil {
			return err
		}
		if err := Ping(ctx, p); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	strategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(interval),
				backoff.WithMaxInterval(10*interval),
			),
			uint64(max(cfg.ConnectRetries, 0)),
		),
		ctx,
	)
	err = backoff.RetryNotify(connect, strategy, func(err error, d time.Duration) {
		slog.Warn("postgres not ready, retrying", "err", err, "next_in", d)
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func parseConfig(cfg Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.ApplicationName != "" {
		if pc.ConnConfig.RuntimeParams == nil {
			pc.ConnConfig.RuntimeParams = map[string]string{}
		}
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	return pc, nil
}

func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return pool.Ping(ctx)
}
