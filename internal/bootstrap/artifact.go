package bootstrap

import (
	"fmt"
	"io/fs"
	"strings"
)

// forbiddenPathChars はファイルパスに含めてはならない特殊文字の集合。
const forbiddenPathChars = "!@#$%^&*()?\"'{}|<>+=`·:'[]"

// ArtifactPath は検証済みのファイルパス。
// 空文字列・空白のみ・先頭が空白・禁止文字を含む値からは生成できない。
// 不正な値を正規化して受け入れることはしない。
type ArtifactPath struct {
	value string
}

// NewArtifactPath は文字列を検証してArtifactPathを生成する。
func NewArtifactPath(raw string) (ArtifactPath, error) {
	if strings.TrimSpace(raw) == "" {
		return ArtifactPath{}, fmt.Errorf("%w: 空文字列または空白のみです", ErrInvalidArtifactPath)
	}
	if strings.HasPrefix(raw, " ") {
		return ArtifactPath{}, fmt.Errorf("%w: %q は空白で始まっています", ErrInvalidArtifactPath, raw)
	}
	if strings.ContainsAny(raw, forbiddenPathChars) {
		return ArtifactPath{}, fmt.Errorf("%w: %q は使用できない文字を含んでいます", ErrInvalidArtifactPath, raw)
	}
	return ArtifactPath{value: raw}, nil
}

// String はパス文字列を返す。
func (p ArtifactPath) String() string {
	return p.value
}

// IsZero はゼロ値かどうかを返す。
func (p ArtifactPath) IsZero() bool {
	return p.value == ""
}

// lower は小文字化したパスを返す。小文字化で禁止文字が増えることはない。
func (p ArtifactPath) lower() ArtifactPath {
	return ArtifactPath{value: strings.ToLower(p.value)}
}

// FileChecker はファイルの存在を確認する。
type FileChecker interface {
	// Exists は通常ファイルとして存在する場合にtrueを返す。
	Exists(p ArtifactPath) bool
}

// FSChecker はfs.FS上のファイルの存在を確認するFileChecker。
// コンテンツルートは os.DirFS で渡す。
type FSChecker struct {
	fsys fs.FS
}

// NewFSChecker は新しいFSCheckerを生成する。
func NewFSChecker(fsys fs.FS) *FSChecker {
	return &FSChecker{fsys: fsys}
}

// Exists はファイルが通常ファイルとして存在するかを返す。ディレクトリはfalse。
func (c *FSChecker) Exists(p ArtifactPath) bool {
	if p.IsZero() || !fs.ValidPath(p.String()) {
		return false
	}
	info, err := fs.Stat(c.fsys, p.String())
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// CaseRule はファイル名の大文字小文字の扱い。
type CaseRule int

const (
	// CanonicalOnly は正規の表記のみを受け付ける。
	CanonicalOnly CaseRule = iota
	// CanonicalOrLower は正規の表記と全て小文字の表記を受け付ける。
	CanonicalOrLower
)

// String はルール名を返す。
func (r CaseRule) String() string {
	switch r {
	case CanonicalOnly:
		return "canonical-only"
	case CanonicalOrLower:
		return "canonical-or-lower"
	default:
		return "unknown"
	}
}

// Variants はルールが受け付けるパスの表記を確認順に返す。
func (r CaseRule) Variants(p ArtifactPath) []ArtifactPath {
	if r == CanonicalOrLower {
		if lower := p.lower(); lower != p {
			return []ArtifactPath{p, lower}
		}
	}
	return []ArtifactPath{p}
}

// Resolve はルールが受け付ける表記のうち、最初に存在が確認できたパスを返す。
func (r CaseRule) Resolve(checker FileChecker, p ArtifactPath) (ArtifactPath, bool) {
	for _, v := range r.Variants(p) {
		if checker.Exists(v) {
			return v, true
		}
	}
	return ArtifactPath{}, false
}
