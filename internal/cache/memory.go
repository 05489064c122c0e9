package cache

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Memory — потокобезопасная in-memory реализация Cache для тестов и
// локальной разработки. Истечение ключей ленивое (проверяется на чтении),
// TTL детерминированный: джиттер не добавляется.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemory создаёт пустой in-memory кэш.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

var _ Cache = (*Memory)(nil)

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return "", false, nil
	}

	return e.value, true, nil
}

func (m *Memory) GetMany(ctx context.Context, keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	for i, key := range keys {
		v, ok, _ := m.Get(ctx, key)
		if ok {
			values[i] = v
		}
	}

	return values, nil
}

func (m *Memory) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return m.Set(ctx, key, string(b), ttl)
}

func (m *Memory) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	value, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return false, err
	}

	return true, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, key := range keys {
		if _, ok := m.entries[key]; ok {
			delete(m.entries, key)
			count++
		}
	}

	return count, nil
}

func (m *Memory) MatchKeys(_ context.Context, pattern string) ([]string, error) {
	re, err := compileGlob(pattern)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()

	var keys []string
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			continue
		}
		if re.MatchString(key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (m *Memory) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]memoryEntry)
	return nil
}

func (m *Memory) Close() error { return nil }

// compileGlob переводит glob-паттерн в регулярное выражение c той же
// семантикой, что у Redis MATCH: '*' — произвольная последовательность символов.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")

	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
