package lists

import (
	"regexp"
	"strings"

	mdns "github.com/miekg/dns"
)

// 校验是纯函数：无副作用、无 I/O，永远在任何文件操作之前执行。
// 域名不做大小写归一化，传进来什么样就按什么样存储。

// IsValidDomain 判断是否为合法主机名。
// 规则：标签 1-63 字符，只允许字母、数字、连字符，标签首尾不能是连字符，
// 整体长度不超过 253 字符。允许 FQDN 形式的单个尾点。
func IsValidDomain(domain string) bool {
	if domain == "" || domain == "." {
		return false
	}
	domain = strings.TrimSuffix(domain, ".")
	if len(domain) > 253 {
		return false
	}
	if _, ok := mdns.IsDomainName(domain); !ok {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' {
				continue
			}
			return false
		}
	}
	return true
}

// IsValidRegex 判断是否为守护进程可编译的正则表达式。
// 守护进程使用 Go 的正则方言，这里直接用 regexp 编译验证。
func IsValidRegex(pattern string) bool {
	if strings.TrimSpace(pattern) == "" {
		return false
	}
	_, err := regexp.Compile(pattern)
	return err == nil
}
