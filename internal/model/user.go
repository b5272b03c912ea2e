// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 現行デプロイはシングルユーザーだが、全エンティティがUserIDで
// パーティションされているためマルチテナント化に対応できる。
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}
