// Package audit はログイン試行の結果を記録する。
//
// 記録するのはメールアドレス、ロール、結果、拒否理由の分類のみで、
// IDトークンや発行したトークンは保存しない。
package audit

import (
	"context"
	"time"
)

// Outcome はログイン試行の結果。
type Outcome string

const (
	// OutcomeIssued はトークンを発行したことを表す。
	OutcomeIssued Outcome = "issued"
	// OutcomeRejected はログインを拒否したことを表す。
	OutcomeRejected Outcome = "rejected"
)

// Entry は1件のログイン試行の記録。
type Entry struct {
	// ID は記録の一意識別子（UUID）。
	ID string
	// RequestID はHTTPリクエストID。
	RequestID string
	// Email は検証済みのメールアドレス。検証前に拒否した場合は空。
	Email string
	// Role は発行したトークンのロール。
	Role string
	// Outcome は結果。
	Outcome Outcome
	// Reason は拒否理由の分類（invalid_token など）。
	Reason string
	// CreatedAt は記録時刻（UTC）。
	CreatedAt time.Time
}

// Recorder はログイン試行を記録する。
type Recorder interface {
	// Record は1件の記録を保存する。
	Record(ctx context.Context, e Entry) error
}

// NopRecorder は何も記録しないRecorder。
type NopRecorder struct{}

// Record は何もしない。
func (NopRecorder) Record(context.Context, Entry) error { return nil }
