package mysql

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate 附加 SELECT ... FOR UPDATE。
// sqlite 不支持该语法且本身是单写者，跳过。
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
