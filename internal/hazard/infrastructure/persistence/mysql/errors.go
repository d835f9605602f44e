package mysql

import (
	"errors"
	"fmt"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
)

// isDuplicateKey 唯一键冲突兜底判断。正常路径在灾害行锁内先查后插，
// 这里只拦截绕过锁的并发插入（MySQL 1062 / sqlite UNIQUE）。
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

// isLockConflict 死锁（1213）或锁等待超时（1205）。
// 事务已被 MySQL 回滚，重试即可恢复。
func isLockConflict(err error) bool {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	return false
}

// asConcurrency 把锁冲突翻译成可重试的领域错误，其余原样返回
func asConcurrency(err error) error {
	if err == nil {
		return nil
	}
	if isLockConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrConcurrency, err)
	}
	return err
}
