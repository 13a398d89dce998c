package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/metrics"
	"github.com/barbershop/internal/model"
)

// Границы длины канала: если с новым сообщением в канале стало бы больше
// MaxChannelMessages, перед добавлением оставляем последние TrimChannelTo.
// 60 сообщений + 61-е дают 50 + 1 = 51.
const (
	MaxChannelMessages = 60
	TrimChannelTo      = 50

	defaultLockTimeout  = 2 * time.Second
	defaultLockPoll     = 25 * time.Millisecond
	defaultLockAttempts = 3
	defaultLockBackoff  = 100 * time.Millisecond
)

var (
	// ErrLockTimeout — эксклюзивную блокировку канала не удалось получить за отведённое время.
	ErrLockTimeout = errors.New("channel lock timeout")
	// ErrBadChannelName — имя канала нельзя использовать как имя файла.
	ErrBadChannelName = errors.New("bad channel name")
)

// MessageRepository — журнал сообщений: один JSON-файл на канал в каталоге dir.
// Append сериализуется через advisory lock на соседнем файле <канал>.json.lock,
// данные пишутся через временный файл и rename, поэтому ReadAll без блокировки
// видит либо старый, либо новый список целиком.
type MessageRepository struct {
	dir         string
	maxLen      int
	trimTo      int
	lockTimeout time.Duration
	lockPoll    time.Duration
	attempts    int
	backoff     time.Duration
	now         func() time.Time
}

type MessageOption func(*MessageRepository)

func WithLockTimeout(d time.Duration) MessageOption {
	return func(r *MessageRepository) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

func WithLockAttempts(n int) MessageOption {
	return func(r *MessageRepository) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func WithLockBackoff(d time.Duration) MessageOption {
	return func(r *MessageRepository) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// WithBounds меняет границы обрезки (только для тестов; в проде 60/50).
func WithBounds(maxLen, trimTo int) MessageOption {
	return func(r *MessageRepository) {
		if maxLen > 0 && trimTo > 0 && trimTo <= maxLen {
			r.maxLen, r.trimTo = maxLen, trimTo
		}
	}
}

func WithMessageClock(now func() time.Time) MessageOption {
	return func(r *MessageRepository) { r.now = now }
}

func NewMessageRepository(dir string, opts ...MessageOption) *MessageRepository {
	r := &MessageRepository{
		dir:         dir,
		maxLen:      MaxChannelMessages,
		trimTo:      TrimChannelTo,
		lockTimeout: defaultLockTimeout,
		lockPoll:    defaultLockPoll,
		attempts:    defaultLockAttempts,
		backoff:     defaultLockBackoff,
		now:         time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Append добавляет сообщение в конец канала под эксклюзивной блокировкой.
// ID и Timestamp выставляются здесь; возвращается сохранённое сообщение.
func (r *MessageRepository) Append(ctx context.Context, channel string, msg model.Message) (model.Message, error) {
	defer logger.DeferLogDuration("msg.Append", time.Now())()
	start := time.Now()
	defer func() { metrics.AppendDuration.Observe(time.Since(start).Seconds()) }()

	path, err := r.dataPath(channel)
	if err != nil {
		return model.Message{}, fmt.Errorf("msgRepo.Append: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			metrics.AppendLockRetries.Inc()
			if err := sleepCtx(ctx, r.backoff); err != nil {
				lastErr = err
				break
			}
		}
		saved, err := r.appendOnce(ctx, path, msg)
		if err == nil {
			return saved, nil
		}
		lastErr = err
		if !errors.Is(err, ErrLockTimeout) || ctx.Err() != nil {
			break
		}
		logger.Errorf("msgRepo.Append channel=%s attempt=%d: %v", channel, attempt, err)
	}
	metrics.AppendFailures.Inc()
	return model.Message{}, fmt.Errorf("msgRepo.Append: %w", lastErr)
}

// appendOnce — одна попытка open+lock+read-modify-write. Ошибка ErrLockTimeout означает,
// что файл данных не трогали и попытку можно повторить.
func (r *MessageRepository) appendOnce(ctx context.Context, path string, msg model.Message) (model.Message, error) {
	fl := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	locked, err := fl.TryLockContext(lockCtx, r.lockPoll)
	cancel()
	if err != nil || !locked {
		_ = fl.Close()
		if ctx.Err() != nil {
			return model.Message{}, ctx.Err()
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return model.Message{}, fmt.Errorf("%w: %v", ErrLockTimeout, err)
		}
		return model.Message{}, ErrLockTimeout
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			logger.Errorf("msgRepo unlock %s: %v", path, err)
		}
	}()

	list := r.load(path)
	if len(list)+1 > r.maxLen {
		list = append([]model.Message(nil), list[len(list)-r.trimTo:]...)
	}

	msg.ID = newMessageID()
	msg.Timestamp = r.now().Unix()
	if n := len(list); n > 0 && list[n-1].Timestamp > msg.Timestamp {
		// Часы могли отойти назад; внутри канала время не убывает.
		msg.Timestamp = list[n-1].Timestamp
	}
	list = append(list, msg)

	data, err := json.Marshal(list)
	if err != nil {
		return model.Message{}, fmt.Errorf("encode channel: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// ReadAll возвращает сообщения канала в порядке добавления. Блокировку не берёт:
// устаревшее чтение допустимо. Нет файла или мусор в файле — пустой список.
func (r *MessageRepository) ReadAll(ctx context.Context, channel string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ReadAll", time.Now())()
	path, err := r.dataPath(channel)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ReadAll: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ReadAll: %w", err)
	}
	return decodeMessages(path, data), nil
}

func (r *MessageRepository) load(path string) []model.Message {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Errorf("msgRepo read %s: %v (treated as empty)", path, err)
		}
		return []model.Message{}
	}
	return decodeMessages(path, data)
}

func decodeMessages(path string, data []byte) []model.Message {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []model.Message{}
	}
	var list []model.Message
	if err := json.Unmarshal(data, &list); err != nil {
		logger.Errorf("msgRepo decode %s: %v (treated as empty)", path, err)
		return []model.Message{}
	}
	if list == nil {
		list = []model.Message{}
	}
	return list
}

func (r *MessageRepository) dataPath(channel string) (string, error) {
	if err := checkFileName(channel); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, channel+".json"), nil
}

// checkFileName не даёт выйти за пределы каталога хранилища.
func checkFileName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrBadChannelName, name)
	}
	return nil
}

// newMessageID — 12 hex-символов из случайной части UUIDv4.
func newMessageID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// writeFileAtomic пишет во временный файл рядом, fsync и rename поверх path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
