package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func restoreDefaults(t *testing.T) {
	t.Cleanup(func() {
		Configure(Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Long: DefaultLong})
	})
}

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	restoreDefaults(t)

	Configure(Config{Short: 7 * time.Second})

	if got := Short(); got != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", got)
	}
	if got := Medium(); got != DefaultMedium {
		t.Errorf("Medium() = %v, want default %v", got, DefaultMedium)
	}
}

func TestCurrent(t *testing.T) {
	restoreDefaults(t)

	Configure(Config{Ping: time.Second, Long: time.Minute})

	want := Config{Ping: time.Second, Short: DefaultShort, Medium: DefaultMedium, Long: time.Minute}
	if got := Current(); got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}

func TestWithTimeout_CancelBeforeDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Minute, zap.NewNop(), "test")
	cancel()

	if ctx.Err() != context.Canceled {
		t.Errorf("ctx.Err() = %v, want Canceled", ctx.Err())
	}
}
