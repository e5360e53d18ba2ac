package log

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// Тесты меняют slog.Default(), поэтому намеренно НЕ используют t.Parallel().

func newSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFrom_ReturnsDefault_WhenNoLoggerInContext(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)

	require.Equal(t, def, From(context.Background()))
}

func TestIntoAndFrom_RoundTrip(t *testing.T) {
	l := newSilent()
	ctx := Into(context.Background(), l)

	require.Equal(t, l, From(ctx))
}

func TestFrom_ReturnsDefault_WhenStoredValueIsWrongTypeOrNil(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	def := newSilent()
	slog.SetDefault(def)

	ctxWrong := context.WithValue(context.Background(), ctxKey{}, "not-a-logger")
	require.Equal(t, def, From(ctxWrong))

	var nilLogger *slog.Logger
	ctxNil := context.WithValue(context.Background(), ctxKey{}, nilLogger)
	require.Equal(t, def, From(ctxNil))
}

// capture - минимальный slog.Handler, запоминающий атрибуты последней записи.
type capture struct {
	base  []slog.Attr
	attrs map[string]any
}

func (h *capture) Enabled(context.Context, slog.Level) bool { return true }

func (h *capture) Handle(_ context.Context, r slog.Record) error {
	h.attrs = map[string]any{}
	for _, a := range h.base {
		h.attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		h.attrs[a.Key] = a.Value.Any()
		return true
	})
	return nil
}

func (h *capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &capture{base: append(append([]slog.Attr{}, h.base...), attrs...)}
}

func (h *capture) WithGroup(string) slog.Handler { return h }

func TestWith_EnrichesAndStoresLogger(t *testing.T) {
	root := &capture{}
	ctx := Into(context.Background(), slog.New(root))

	ctx, l := With(ctx, "op", "service.sessions.Create")
	require.Equal(t, l, From(ctx))

	From(ctx).Info("event", "user_id", int64(7))

	// WithAttrs возвращает новый handler, поэтому ищем запись через логгер.
	h, ok := l.Handler().(*capture)
	require.True(t, ok)
	require.Equal(t, "service.sessions.Create", h.attrs["op"])
	require.Equal(t, int64(7), h.attrs["user_id"])
}
