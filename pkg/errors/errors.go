package errors

import "errors"

// 存储层统一错误分类（由 repository 层在边界处一次性转换，service 层只依赖这些哨兵值）
var (
	// ErrDuplicateKey 唯一约束冲突（如交接单号重复、同一交接单重复接收）
	ErrDuplicateKey = errors.New("数据已存在（唯一约束冲突）")
	// ErrTransient 瞬时错误：锁等待超时、死锁、序列化冲突、连接抖动，可重试
	ErrTransient = errors.New("数据库暂时繁忙，请稍后重试")
)

// IsRetryable 判断错误是否为可重试的瞬时错误
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
