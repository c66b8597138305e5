package lists

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/winspan/boomfilter/pkg/logger"
)

// eomMarker 守护进程响应的结束标记行
const eomMarker = "---EOM---"

// DaemonNotifier 通过控制套接字通知外部解析守护进程。
// 协议：发送 ">命令\n"，然后读取响应直到出现结束标记行。
// 协议本身由守护进程定义，这里只负责发命令和等确认。
// 每次调用建立一条连接，连接与读取共用同一个截止时间，
// 不会无限期阻塞在一个失联的守护进程上。
type DaemonNotifier struct {
	network string
	address string
	timeout time.Duration
	log     *logger.Logger
}

// NewDaemonNotifier 从配置创建守护进程通知器
func NewDaemonNotifier(cfg *Config, log *logger.Logger) *DaemonNotifier {
	return &DaemonNotifier{
		network: cfg.GetDaemonNetwork(),
		address: cfg.GetDaemonAddress(),
		timeout: cfg.GetDaemonTimeout(),
		log:     log,
	}
}

// Notify 下发该列表对应的控制命令并等待确认
func (n *DaemonNotifier) Notify(kind Kind) error {
	command := kind.Command()

	conn, err := net.DialTimeout(n.network, n.address, n.timeout)
	if err != nil {
		return fmt.Errorf("连接守护进程失败: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(n.timeout)); err != nil {
		return fmt.Errorf("设置超时失败: %w", err)
	}

	if _, err := fmt.Fprintf(conn, ">%s\n", command); err != nil {
		return fmt.Errorf("发送 %s 失败: %w", command, err)
	}

	// 响应正文在确认语义上无关紧要，只认结束标记
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if scanner.Text() == eomMarker {
			n.log.Debug("守护进程已确认 %s", command)
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("读取守护进程响应失败: %w", err)
	}
	return fmt.Errorf("守护进程响应缺少结束标记")
}
