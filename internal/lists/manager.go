package lists

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/winspan/boomfilter/pkg/logger"
)

// CompareOptions 条目比较策略。
// 参考行为是逐字节精确匹配；大小写折叠和尾点归一化作为显式配置提供。
type CompareOptions struct {
	CaseInsensitive bool
	TrimTrailingDot bool
}

func (o CompareOptions) canonical(s string) string {
	if o.TrimTrailingDot {
		s = strings.TrimSuffix(s, ".")
	}
	if o.CaseInsensitive {
		s = strings.ToLower(s)
	}
	return s
}

// Notifier 在变更落盘后同步守护进程的内存状态
type Notifier interface {
	Notify(kind Kind) error
}

// Manager 是所有列表变更的入口：校验 → 读盘 → 写盘 → 通知守护进程。
// 每种列表一把互斥锁，锁覆盖整个读-改-写序列，堵住并发删除互相覆盖的竞态；
// 守护进程通知在锁外执行，慢守护进程不会拖住其他列表的操作。
type Manager struct {
	store    *Store
	notifier Notifier
	audit    *AuditLog // 可为 nil
	log      *logger.Logger
	cmp      CompareOptions

	mu [3]sync.Mutex
}

// NewManager 创建列表管理器。audit 为 nil 时不记录审计。
func NewManager(store *Store, notifier Notifier, audit *AuditLog, log *logger.Logger, cmp CompareOptions) *Manager {
	return &Manager{
		store:    store,
		notifier: notifier,
		audit:    audit,
		log:      log,
		cmp:      cmp,
	}
}

// Get 返回列表当前全部条目，不做校验
func (m *Manager) Get(kind Kind) ([]string, error) {
	return m.store.Read(kind)
}

// Add 向列表添加条目。
// 校验失败返回 ErrInvalidEntry 且不发生任何 I/O；
// 已存在返回 ErrAlreadyExists 且文件不变。
func (m *Manager) Add(kind Kind, entry string) error {
	if !kind.Accepts(entry) {
		mutationCounter.WithLabelValues(kind.String(), "add", "invalid").Inc()
		return fmt.Errorf("%q: %w", entry, ErrInvalidEntry)
	}

	m.mu[kind].Lock()
	entries, err := m.store.Read(kind)
	if err != nil {
		m.mu[kind].Unlock()
		mutationCounter.WithLabelValues(kind.String(), "add", "io_error").Inc()
		return err
	}
	if m.contains(entries, entry) {
		m.mu[kind].Unlock()
		mutationCounter.WithLabelValues(kind.String(), "add", "duplicate").Inc()
		return fmt.Errorf("%q: %w", entry, ErrAlreadyExists)
	}
	if err := m.store.Append(kind, entry); err != nil {
		m.mu[kind].Unlock()
		mutationCounter.WithLabelValues(kind.String(), "add", "io_error").Inc()
		return err
	}
	m.mu[kind].Unlock()

	mutationCounter.WithLabelValues(kind.String(), "add", "ok").Inc()
	m.log.Info("%s 添加条目: %s", kind, entry)
	m.recordAudit(kind, entry, "add")
	return m.notify(kind)
}

// Remove 从列表删除条目（命中多行时全部删除）。
// 与 Add 对称，删除前同样先校验，非法输入无论是否可能存过都统一拒绝。
func (m *Manager) Remove(kind Kind, entry string) error {
	if !kind.Accepts(entry) {
		mutationCounter.WithLabelValues(kind.String(), "remove", "invalid").Inc()
		return fmt.Errorf("%q: %w", entry, ErrInvalidEntry)
	}

	m.mu[kind].Lock()
	entries, err := m.store.Read(kind)
	if err != nil {
		m.mu[kind].Unlock()
		mutationCounter.WithLabelValues(kind.String(), "remove", "io_error").Inc()
		return err
	}

	kept := make([]string, 0, len(entries))
	for _, e := range entries {
		if !m.equal(e, entry) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		m.mu[kind].Unlock()
		mutationCounter.WithLabelValues(kind.String(), "remove", "missing").Inc()
		return fmt.Errorf("%q: %w", entry, ErrNotFound)
	}

	if err := m.store.Rewrite(kind, kept); err != nil {
		m.mu[kind].Unlock()
		mutationCounter.WithLabelValues(kind.String(), "remove", "io_error").Inc()
		return err
	}
	m.mu[kind].Unlock()

	mutationCounter.WithLabelValues(kind.String(), "remove", "ok").Inc()
	m.log.Info("%s 删除条目: %s", kind, entry)
	m.recordAudit(kind, entry, "remove")
	return m.notify(kind)
}

// TryRemove 与 Remove 相同，但条目不存在不算失败。
// 供不关心条目是否已缺席的幂等删除调用方使用，其他错误照常传递。
func (m *Manager) TryRemove(kind Kind, entry string) error {
	err := m.Remove(kind, entry)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (m *Manager) contains(entries []string, entry string) bool {
	for _, e := range entries {
		if m.equal(e, entry) {
			return true
		}
	}
	return false
}

func (m *Manager) equal(a, b string) bool {
	return m.cmp.canonical(a) == m.cmp.canonical(b)
}

func (m *Manager) recordAudit(kind Kind, entry, action string) {
	if m.audit == nil {
		return
	}
	// 审计失败只记日志，不影响已经成功的变更
	if err := m.audit.Record(kind, entry, action); err != nil {
		m.log.Warn("写入审计记录失败: %v", err)
	}
}

func (m *Manager) notify(kind Kind) error {
	start := time.Now()
	if err := m.notifier.Notify(kind); err != nil {
		notifyFailures.WithLabelValues(kind.String()).Inc()
		m.log.Error("通知守护进程失败 (%s): %v", kind.Command(), err)
		return &NotifyError{Kind: kind, Err: err}
	}
	notifyDuration.WithLabelValues(kind.Command()).Observe(time.Since(start).Seconds())
	return nil
}

var (
	mutationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boomfilter_list_mutations_total",
			Help: "List mutation attempts by list, action and result",
		},
		[]string{"list", "action", "result"},
	)
	notifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boomfilter_daemon_notify_failures_total",
			Help: "Failed daemon notifications after a committed mutation",
		},
		[]string{"list"},
	)
	notifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boomfilter_daemon_notify_duration_seconds",
			Help:    "Daemon notify round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(mutationCounter, notifyFailures, notifyDuration)
}
