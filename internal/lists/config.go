package lists

import (
	"time"
)

// Config 过滤列表控制面配置
type Config struct {
	ListenHTTP string `yaml:"listen_http"`
	AdminToken string `yaml:"admin_token"`

	// 每种列表对应一个后端文件
	Lists struct {
		AllowFile string `yaml:"allow_file"`
		DenyFile  string `yaml:"deny_file"`
		RegexFile string `yaml:"regex_file"`
	} `yaml:"lists"`

	// 守护进程控制通道配置
	Daemon struct {
		Network string `yaml:"network"` // unix 或 tcp
		Address string `yaml:"address"`
		Timeout int    `yaml:"timeout"` // 秒
	} `yaml:"daemon"`

	// 条目比较策略（默认逐字节精确匹配，与参考行为一致）
	Compare struct {
		CaseInsensitive bool `yaml:"case_insensitive"`
		TrimTrailingDot bool `yaml:"trim_trailing_dot"`
	} `yaml:"compare"`

	// 变更审计配置
	Audit struct {
		Enabled    bool   `yaml:"enabled"`
		SQLiteFile string `yaml:"sqlite_file"`
		MaxEntries int    `yaml:"max_entries"`
	} `yaml:"audit"`

	// 日志配置
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
		Prefix string `yaml:"prefix"`
	} `yaml:"logging"`
}

// GetListenHTTP 获取管理接口监听地址
func (c *Config) GetListenHTTP() string {
	if c.ListenHTTP == "" {
		return ":8053"
	}
	return c.ListenHTTP
}

// ListFiles 返回列表类型到文件路径的映射（存储层的唯一路径来源）
func (c *Config) ListFiles() map[Kind]string {
	files := map[Kind]string{
		Allow: c.Lists.AllowFile,
		Deny:  c.Lists.DenyFile,
		Regex: c.Lists.RegexFile,
	}
	if files[Allow] == "" {
		files[Allow] = "data/allow.list"
	}
	if files[Deny] == "" {
		files[Deny] = "data/deny.list"
	}
	if files[Regex] == "" {
		files[Regex] = "data/regex.list"
	}
	return files
}

// GetDaemonNetwork 获取守护进程控制通道的网络类型
func (c *Config) GetDaemonNetwork() string {
	if c.Daemon.Network == "" {
		return "unix"
	}
	return c.Daemon.Network
}

// GetDaemonAddress 获取守护进程控制通道地址
func (c *Config) GetDaemonAddress() string {
	if c.Daemon.Address == "" {
		return "/run/boomfilter/daemon.sock"
	}
	return c.Daemon.Address
}

// GetDaemonTimeout 获取守护进程调用的超时（连接与读响应共用）
func (c *Config) GetDaemonTimeout() time.Duration {
	if c.Daemon.Timeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Daemon.Timeout) * time.Second
}

// CompareOptions 返回条目比较策略
func (c *Config) CompareOptions() CompareOptions {
	return CompareOptions{
		CaseInsensitive: c.Compare.CaseInsensitive,
		TrimTrailingDot: c.Compare.TrimTrailingDot,
	}
}

// GetAuditFile 获取审计数据库文件路径
func (c *Config) GetAuditFile() string {
	if c.Audit.SQLiteFile == "" {
		return "data/boomfilter.db"
	}
	return c.Audit.SQLiteFile
}

// GetMaxAuditEntries 获取审计记录保留上限
func (c *Config) GetMaxAuditEntries() int {
	if c.Audit.MaxEntries <= 0 {
		return 10000
	}
	return c.Audit.MaxEntries
}
