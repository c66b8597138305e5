package lists

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/winspan/boomfilter/pkg/logger"
)

// AuditLog 用 SQLite 记录列表变更历史。
// 审计是旁路：写入失败由调用方降级为日志告警，不影响变更本身。
type AuditLog struct {
	db  *sql.DB
	max int
	log *logger.Logger
}

// AuditEntry 一条变更记录
type AuditEntry struct {
	ID        int64     `json:"id"`
	List      string    `json:"list"`
	Entry     string    `json:"entry"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenAuditLog 打开（必要时创建）审计数据库
func OpenAuditLog(path string, maxEntries int, log *logger.Logger) (*AuditLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建审计目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("打开审计数据库失败: %w", err)
	}

	a := &AuditLog{db: db, max: maxEntries, log: log}
	if err := a.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// initTables 初始化表结构
func (a *AuditLog) initTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS list_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		list TEXT NOT NULL,
		entry TEXT NOT NULL,
		action TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_list_audit_created ON list_audit(created_at);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("初始化审计表失败: %w", err)
	}
	return nil
}

// Record 记录一次已提交的变更，并裁剪超过保留上限的旧记录
func (a *AuditLog) Record(kind Kind, entry, action string) error {
	_, err := a.db.Exec(
		"INSERT INTO list_audit (list, entry, action) VALUES (?, ?, ?)",
		kind.String(), entry, action,
	)
	if err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}

	if a.max > 0 {
		_, err = a.db.Exec(
			"DELETE FROM list_audit WHERE id NOT IN (SELECT id FROM list_audit ORDER BY id DESC LIMIT ?)",
			a.max,
		)
		if err != nil {
			a.log.Warn("清理审计记录失败: %v", err)
		}
	}
	return nil
}

// Recent 返回最近的变更记录，按时间倒序
func (a *AuditLog) Recent(limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := a.db.Query(
		"SELECT id, list, entry, action, created_at FROM list_audit ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.List, &e.Entry, &e.Action, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("读取审计记录失败: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close 关闭审计数据库
func (a *AuditLog) Close() error {
	return a.db.Close()
}
