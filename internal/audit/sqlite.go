package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/nao1215/aida/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout はcreated_atの保存形式。固定長のため文字列比較で時刻順に並ぶ。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRecorder はSQLiteにログイン試行を記録するRecorder。
type SQLiteRecorder struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// now は現在時刻を返す。
	now func() time.Time
}

// OpenSQLite はSQLiteファイルを開き、スキーマを適用したSQLiteRecorderを返す。
// pathが ":memory:" の場合はインメモリデータベースを使用する。
func OpenSQLite(ctx context.Context, path string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("監査ログのディレクトリ作成に失敗: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("監査ログのデータベース接続に失敗: %w", err)
	}
	// SQLiteは書き込みが直列化されるため接続を1本に制限する
	db.SetMaxOpenConns(1)

	if _, err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("監査ログのスキーマ初期化に失敗: %w", err)
	}
	return &SQLiteRecorder{db: db, now: time.Now}, nil
}

// Record は1件の記録を保存する。IDと時刻が未設定の場合は補完する。
func (r *SQLiteRecorder) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_events (id, request_id, email, role, outcome, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RequestID, e.Email, e.Role, string(e.Outcome), e.Reason, e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("ログイン記録の保存に失敗: %w", err)
	}
	return nil
}

// Recent は新しい順に最大limit件の記録を返す。
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, email, role, outcome, reason, created_at
		 FROM login_events
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ログイン記録の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			outcome   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Email, &e.Role, &outcome, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("ログイン記録の読み込みに失敗: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("記録時刻の解析に失敗: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping はデータベースへ到達できることを確認する。
func (r *SQLiteRecorder) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
