// Package database は組み立て済みの接続設定からデータベース接続を開く。
//
// 接続文字列には平文の認証情報が含まれるため、エラーやログには出力しない。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nao1215/aida/internal/bootstrap"
	"github.com/nao1215/aida/internal/config"
)

// driverName はpgxのdatabase/sqlドライバ名。
const driverName = "pgx"

// DefaultPingTimeout はヘルスチェックでの接続確認の上限時間。
const DefaultPingTimeout = 2 * time.Second

// ErrInvalidConnectionString は接続文字列を解釈できないことを表す。
var ErrInvalidConnectionString = errors.New("接続文字列を解釈できません")

// ParseTarget は接続文字列を検証し、接続先を表す認証情報を含まない文字列を返す。
// 接続は行わない。
func ParseTarget(db config.Database) (string, error) {
	if db.Engine != string(bootstrap.EnginePostgreSQL) {
		return "", fmt.Errorf("%s: %w", db.Engine, bootstrap.ErrUnsupportedEngine)
	}
	cfg, err := pgx.ParseConfig(db.ConnectionString)
	if err != nil {
		// pgxのエラーには接続文字列の一部が含まれるため包まない
		return "", ErrInvalidConnectionString
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database), nil
}

// Open は接続設定に対応するドライバでデータベースを開く。
// database/sqlは遅延接続のため、到達性の確認にはPingを使用する。
func Open(db config.Database) (*sql.DB, error) {
	if _, err := ParseTarget(db); err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driverName, db.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("データベース接続の初期化に失敗: %w", ErrInvalidConnectionString)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return sqlDB, nil
}

// Ping は上限時間内にデータベースへ到達できることを確認する。
func Ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("データベースへの接続確認がタイムアウトしました: %w", ctxErr)
		}
		return errors.New("データベースへの接続確認に失敗しました")
	}
	return nil
}
