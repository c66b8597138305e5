package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/winspan/boomfilter/internal/lists"
	"github.com/winspan/boomfilter/pkg/logger"
)

type Api struct {
	mgr   *lists.Manager
	audit *lists.AuditLog
	token string
	log   *logger.Logger
}

// BindRoutes 注册管理接口路由。
// 认证、路由和错误码转换都在这一层，列表核心只返回类型化的错误。
func BindRoutes(r *chi.Mux, mgr *lists.Manager, audit *lists.AuditLog, cfg *lists.Config, log *logger.Logger) {
	api := &Api{mgr: mgr, audit: audit, token: cfg.AdminToken, log: log}

	// 中间件
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Timeout(30*time.Second))

	r.Get("/api/health", api.health)
	r.Group(func(pr chi.Router) {
		pr.Use(api.auth)

		// 每种列表三个操作：查询、添加、删除
		pr.Get("/api/dns/allowlist", api.getList(lists.Allow))
		pr.Post("/api/dns/allowlist", api.addEntry(lists.Allow))
		pr.Delete("/api/dns/allowlist/*", api.deleteEntry(lists.Allow))

		pr.Get("/api/dns/denylist", api.getList(lists.Deny))
		pr.Post("/api/dns/denylist", api.addEntry(lists.Deny))
		pr.Delete("/api/dns/denylist/*", api.deleteEntry(lists.Deny))

		pr.Get("/api/dns/regexlist", api.getList(lists.Regex))
		pr.Post("/api/dns/regexlist", api.addEntry(lists.Regex))
		pr.Delete("/api/dns/regexlist/*", api.deleteEntry(lists.Regex))

		// 变更审计
		pr.Get("/api/audit", api.getAudit)
	})
}

func (a *Api) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 如果token为空，跳过认证
		if a.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") || strings.TrimPrefix(h, "Bearer ") != a.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Api) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

// getList 返回列表当前全部条目
func (a *Api) getList(kind lists.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := a.mgr.Get(kind)
		if err != nil {
			a.writeError(w, err)
			return
		}
		if entries == nil {
			entries = []string{}
		}
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"list":    kind.String(),
			"entries": entries,
			"count":   len(entries),
		})
	}
}

// addEntry 向列表添加条目。
// 域名在放行/拦截两个列表之间互斥：加入一边时会从另一边幂等移除，
// 正则列表不参与互斥。
func (a *Api) addEntry(kind lists.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Entry string `json:"entry"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := a.mgr.Add(kind, req.Entry); err != nil {
			a.writeError(w, err)
			return
		}

		switch kind {
		case lists.Allow:
			a.tryRemoveOpposite(lists.Deny, req.Entry)
		case lists.Deny:
			a.tryRemoveOpposite(lists.Allow, req.Entry)
		}

		a.writeSuccess(w)
	}
}

// tryRemoveOpposite 从对侧列表幂等移除。对侧本来就没有该条目是常态；
// 其余失败（存储错误、同步失败）不向客户端传播，但必须留下告警，
// 否则清理失败就无声无息了。
func (a *Api) tryRemoveOpposite(kind lists.Kind, entry string) {
	if err := a.mgr.TryRemove(kind, entry); err != nil {
		a.log.Warn("从 %s 清理 %s 失败: %v", kind, entry, err)
	}
}

// deleteEntry 从列表删除条目。
// ?missing_ok=true 时为幂等删除，条目不存在也算成功。
func (a *Api) deleteEntry(kind lists.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "*")
		entry, err := url.PathUnescape(raw)
		if err != nil {
			entry = raw
		}

		if r.URL.Query().Get("missing_ok") == "true" {
			if err := a.mgr.TryRemove(kind, entry); err != nil {
				a.writeError(w, err)
				return
			}
		} else {
			if err := a.mgr.Remove(kind, entry); err != nil {
				a.writeError(w, err)
				return
			}
		}
		a.writeSuccess(w)
	}
}

// getAudit 返回最近的变更记录
func (a *Api) getAudit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "application/json")

	if a.audit == nil {
		http.Error(w, "审计功能未启用", http.StatusServiceUnavailable)
		return
	}

	limit := 200
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	items, err := a.audit.Recent(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []lists.AuditEntry{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

func (a *Api) writeSuccess(w http.ResponseWriter) {
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "success"})
}

// writeError 把核心层的类型化错误翻译成 HTTP 状态码
func (a *Api) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var notifyErr *lists.NotifyError

	switch {
	case errors.Is(err, lists.ErrInvalidEntry):
		status = http.StatusBadRequest
	case errors.Is(err, lists.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, lists.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &notifyErr):
		// 变更已落盘，守护进程状态滞后
		status = http.StatusBadGateway
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "error",
		"message": err.Error(),
	})
}
