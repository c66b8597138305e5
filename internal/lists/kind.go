package lists

// Kind 列表类型（闭集）：放行列表、拦截列表、正则拦截列表。
// 每种类型对应唯一的后端文件和唯一的校验规则，进程生命周期内不变。
type Kind int

const (
	Allow Kind = iota
	Deny
	Regex
)

// String 返回列表类型的对外名称（与 HTTP 路由一致）
func (k Kind) String() string {
	switch k {
	case Allow:
		return "allowlist"
	case Deny:
		return "denylist"
	case Regex:
		return "regexlist"
	default:
		return "unknown"
	}
}

// ParseKind 从对外名称解析列表类型
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "allowlist":
		return Allow, true
	case "denylist":
		return Deny, true
	case "regexlist":
		return Regex, true
	default:
		return 0, false
	}
}

// Command 返回变更落盘后需要下发给守护进程的控制命令。
// 域名列表触发整体重载，正则列表只需要重新编译。
func (k Kind) Command() string {
	if k == Regex {
		return "recompile-regex"
	}
	return "reload-lists"
}

// Accepts 判断候选条目是否能进入该列表
func (k Kind) Accepts(entry string) bool {
	if k == Regex {
		return IsValidRegex(entry)
	}
	return IsValidDomain(entry)
}
