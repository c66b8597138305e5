package lists

import (
	"bufio"
	"fmt"
	"os"
)

// Store 负责单个列表文件的读写。
// 路径映射在构造时显式注入，不读取任何全局状态。
// 文件即权威数据：每次操作前都重新读盘，进程内不做缓存。
type Store struct {
	files map[Kind]string
}

// NewStore 创建列表存储，files 为列表类型到文件路径的完整映射
func NewStore(files map[Kind]string) *Store {
	return &Store{files: files}
}

func (s *Store) path(kind Kind) (string, error) {
	p, ok := s.files[kind]
	if !ok || p == "" {
		return "", fmt.Errorf("%s 未配置后端文件", kind)
	}
	return p, nil
}

// Read 读取列表全部条目。
// 文件不存在视为空列表（从未创建过的列表在语义上就是空的）。
// 按行切分并丢弃空行，不做任何其他转换；去重是上层的事。
func (s *Store) Read(kind Kind) ([]string, error) {
	path, err := s.path(kind)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取 %s 失败: %w", kind, err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", kind, err)
	}
	return entries, nil
}

// Append 以创建或追加模式写入一行。不检查重复，重复检查是上层的事。
func (s *Store) Append(kind Kind, entry string) error {
	path, err := s.path(kind)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("打开 %s 失败: %w", kind, err)
	}
	if _, err := f.WriteString(entry + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("写入 %s 失败: %w", kind, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", kind, err)
	}
	return nil
}

// Rewrite 用给定条目整体重写列表文件。
// 先写临时文件再 rename，保证要么是完整的新内容要么是完整的旧内容，
// 不会出现写了一半的文件。
func (s *Store) Rewrite(kind Kind, entries []string) error {
	path, err := s.path(kind)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, entry := range entries {
		if _, err := w.WriteString(entry + "\n"); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("写入临时文件失败: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("落盘临时文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("替换 %s 失败: %w", kind, err)
	}
	return nil
}
