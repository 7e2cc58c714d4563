package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/materium/registry/errors"
	"github.com/materium/registry/pkg/retry"
)

// NATSOptions configures the JetStream-backed ledger.
type NATSOptions struct {
	Timeout       time.Duration // Per-operation timeout
	MaxValueSize  int           // Maximum size for values (default: 1MB)
	CASRetry      retry.Config  // Retry policy for atomic updates
	ReconnectWait time.Duration
	MaxReconnects int // -1 = infinite
	Name          string
	Username      string
	Password      string
	Token         string
	Logger        *slog.Logger
}

// DefaultNATSOptions returns sensible defaults for the JetStream ledger.
func DefaultNATSOptions() NATSOptions {
	return NATSOptions{
		Timeout:       5 * time.Second,
		MaxValueSize:  1024 * 1024,
		CASRetry:      retry.Contended(),
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
		Name:          "materium-registry",
	}
}

// NATSLedger implements Client (and Updater) on a NATS JetStream KV bucket.
type NATSLedger struct {
	conn    *nats.Conn
	bucket  jetstream.KeyValue
	options NATSOptions
	logger  *slog.Logger
}

// NATSOption mutates NATSOptions.
type NATSOption func(*NATSOptions)

// WithTimeout sets the per-operation timeout.
func WithTimeout(d time.Duration) NATSOption {
	return func(o *NATSOptions) { o.Timeout = d }
}

// WithCASRetry sets the retry policy for atomic read-modify-write updates.
func WithCASRetry(cfg retry.Config) NATSOption {
	return func(o *NATSOptions) { o.CASRetry = cfg }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) NATSOption {
	return func(o *NATSOptions) { o.Logger = l }
}

// WithUserInfo sets username/password authentication.
func WithUserInfo(username, password string) NATSOption {
	return func(o *NATSOptions) {
		o.Username = username
		o.Password = password
	}
}

// WithToken sets token authentication.
func WithToken(token string) NATSOption {
	return func(o *NATSOptions) { o.Token = token }
}

// WithReconnect tunes the reconnect policy. maxReconnects of -1 retries
// forever.
func WithReconnect(wait time.Duration, maxReconnects int) NATSOption {
	return func(o *NATSOptions) {
		o.ReconnectWait = wait
		o.MaxReconnects = maxReconnects
	}
}

// OpenNATS connects to a NATS server and binds the named KV bucket, creating
// it when absent. The returned ledger is safe for concurrent use.
func OpenNATS(ctx context.Context, url, bucketName string, opts ...NATSOption) (*NATSLedger, error) {
	options := DefaultNATSOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	connOpts := []nats.Option{
		nats.Name(options.Name),
		nats.MaxReconnects(options.MaxReconnects),
		nats.ReconnectWait(options.ReconnectWait),
		nats.Timeout(options.Timeout),
	}
	if options.Username != "" {
		connOpts = append(connOpts, nats.UserInfo(options.Username, options.Password))
	}
	if options.Token != "" {
		connOpts = append(connOpts, nats.Token(options.Token))
	}

	conn, err := nats.Connect(url, connOpts...)
	if err != nil {
		return nil, errors.WrapTransient(err, "NATSLedger", "OpenNATS", "connect")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapTransient(err, "NATSLedger", "OpenNATS", "init JetStream")
	}

	bucket, err := openBucket(ctx, js, bucketName)
	if err != nil {
		conn.Close()
		return nil, err
	}

	options.Logger.Info("ledger ready", "url", url, "bucket", bucketName)

	return &NATSLedger{
		conn:    conn,
		bucket:  bucket,
		options: options,
		logger:  options.Logger,
	}, nil
}

// openBucket gets the bucket, creating it on first use. Creation can race
// with another process; the loser re-reads the existing bucket.
func openBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	bucket, err := js.KeyValue(ctx, name)
	if err == nil {
		return bucket, nil
	}

	bucket, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "material registry ledger",
	})
	if err == nil {
		return bucket, nil
	}

	if isAlreadyExistsError(err) {
		bucket, err = js.KeyValue(ctx, name)
		if err != nil {
			return nil, errors.WrapTransient(err, "NATSLedger", "openBucket",
				fmt.Sprintf("access existing bucket %s", name))
		}
		return bucket, nil
	}

	return nil, errors.WrapTransient(err, "NATSLedger", "openBucket",
		fmt.Sprintf("create bucket %s", name))
}

// applyTimeout applies the configured timeout to the context if set
func (l *NATSLedger) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.options.Timeout > 0 {
		return context.WithTimeout(ctx, l.options.Timeout)
	}
	return ctx, func() {}
}

// IsAvailable reports whether the NATS connection can serve requests.
func (l *NATSLedger) IsAvailable(_ context.Context) bool {
	return l.conn != nil && l.conn.IsConnected()
}

// Get returns the value under key, or (nil, nil) when the key was never set.
// A deleted KV entry also reads as unset: the registry defines no deletion,
// so anything without a live value is simply "not there".
func (l *NATSLedger) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := l.applyTimeout(ctx)
	defer cancel()

	entry, err := l.bucket.Get(ctx, key)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "NATSLedger", "Get", fmt.Sprintf("get %s", key))
	}

	return entry.Value(), nil
}

// Set stores value under key, last writer wins.
func (l *NATSLedger) Set(ctx context.Context, key string, value []byte) error {
	if l.options.MaxValueSize > 0 && len(value) > l.options.MaxValueSize {
		return errors.WrapInvalid(
			fmt.Errorf("value size %d exceeds maximum %d", len(value), l.options.MaxValueSize),
			"NATSLedger", "Set", "validate value size")
	}

	ctx, cancel := l.applyTimeout(ctx)
	defer cancel()

	rev, err := l.bucket.Put(ctx, key, value)
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrWriteFailure, err),
			"NATSLedger", "Set", fmt.Sprintf("put %s", key))
	}

	l.logger.Debug("ledger set", "key", key, "revision", rev, "bytes", len(value))
	return nil
}

// Update performs an atomic read-modify-write of key using KV revision
// checks, retrying on concurrent-writer conflicts with backoff and jitter.
// It implements the optional Updater capability.
func (l *NATSLedger) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	ctx, cancel := l.applyTimeout(ctx)
	defer cancel()

	attempt := 0
	err := retry.Do(ctx, l.options.CASRetry, func() error {
		attempt++

		var current []byte
		var revision uint64

		entry, err := l.bucket.Get(ctx, key)
		switch {
		case err == nil:
			current = entry.Value()
			revision = entry.Revision()
		case isNotFoundError(err):
			// Unset key: create below with revision 0
		default:
			return fmt.Errorf("get during update: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return retry.NonRetryable(fmt.Errorf("update function: %w", err))
		}

		if l.options.MaxValueSize > 0 && len(next) > l.options.MaxValueSize {
			return retry.NonRetryable(fmt.Errorf(
				"value size %d exceeds maximum %d", len(next), l.options.MaxValueSize))
		}

		if revision == 0 {
			_, err = l.bucket.Create(ctx, key, next)
		} else {
			_, err = l.bucket.Update(ctx, key, next, revision)
		}
		if err == nil {
			return nil
		}
		if isConflictError(err) {
			l.logger.Debug("ledger update conflict, retrying",
				"key", key, "attempt", attempt)
			return err
		}
		return fmt.Errorf("write during update: %w", err)
	})
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrWriteFailure, err),
			"NATSLedger", "Update", fmt.Sprintf("update %s", key))
	}

	return nil
}

// Close drains the NATS connection.
func (l *NATSLedger) Close() error {
	if l.conn == nil {
		return nil
	}
	if err := l.conn.Drain(); err != nil {
		l.conn.Close()
		return errors.Wrap(err, "NATSLedger", "Close", "drain connection")
	}
	return nil
}

// isNotFoundError checks if error indicates key not found
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, jetstream.ErrKeyNotFound) || stderrors.Is(err, jetstream.ErrKeyDeleted) {
		return true
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "key not found") ||
		strings.Contains(errMsg, "10037")
}

// isConflictError checks if error indicates a CAS conflict (key exists or
// wrong revision)
func isConflictError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "wrong last sequence") ||
		strings.Contains(errMsg, "10071") ||
		strings.Contains(errMsg, "key exists") ||
		strings.Contains(errMsg, "10058")
}

// isAlreadyExistsError checks if an error indicates a KV bucket already exists
func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "bucket name already in use") ||
		strings.Contains(errStr, "already exists") ||
		strings.Contains(errStr, "stream name already in use")
}
