package lists

import (
	"errors"
	"fmt"
)

// 错误分类：
// - ErrInvalidEntry  校验失败，未发生任何 I/O
// - ErrAlreadyExists 重复添加，文件未变更
// - ErrNotFound      删除不存在的条目，文件未变更
// - NotifyError      文件已落盘但守护进程同步失败
// 其余错误为存储层 I/O 失败，原样向上传递。
var (
	ErrInvalidEntry  = errors.New("条目格式非法")
	ErrAlreadyExists = errors.New("条目已存在")
	ErrNotFound      = errors.New("条目不存在")
)

// NotifyError 表示变更已持久化，但守护进程的内存状态没有跟上。
// 调用方需要区分"什么都没改"和"列表改了但守护进程还是旧状态"。
type NotifyError struct {
	Kind Kind
	Err  error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("%s 已更新，但通知守护进程失败: %v", e.Kind, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}
