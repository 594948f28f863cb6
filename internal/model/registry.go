package model

// AllModels 返回所有需要迁移的数据库模型对象
// 正式环境以 migrations/ 为准，db.auto_migrate 打开时开发环境直接 AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&EmbeddedWallet{},
		&WalletKey{},
		&APICredential{},
		&Withdrawal{},
		&OutboxMessage{},
	}
}
