package logger

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// ensureInstanceID: INSTANCE_ID из окружения, иначе hostname + короткий uuid.
func ensureInstanceID(v string) string {
	if v != "" {
		return v
	}
	if v = os.Getenv("INSTANCE_ID"); v != "" {
		return v
	}

	hn, _ := os.Hostname()
	return hn + "-" + uuid.NewString()[:8]
}

// commonAttr is attached to every record. Empty version is omitted;
// cfg.Attrs go last so a service can add its own static fields.
func commonAttr(cfg Config) []slog.Attr {
	out := make([]slog.Attr, 0, 5+len(cfg.Attrs))
	out = append(out,
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", cfg.InstanceID),
		slog.Int("pid", os.Getpid()),
	)
	if cfg.Version != "" {
		out = append(out, slog.String("version", cfg.Version))
	}
	return append(out, cfg.Attrs...)
}
