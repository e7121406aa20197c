package bootstrap

import "strings"

// DatabaseIdentifier は論理的なデータベース接続先の識別子。
// 設定キーとシークレットファイル名の両方に埋め込まれる。
type DatabaseIdentifier string

const (
	// PrimaryDb はアプリケーションの主データベース。
	PrimaryDb DatabaseIdentifier = "PrimaryDb"
)

// String は識別子の文字列表現を返す。
func (d DatabaseIdentifier) String() string {
	return string(d)
}

// SupportedDatabaseEngine はデータベース識別子の背後にあるエンジンの種類。
type SupportedDatabaseEngine string

const (
	// EnginePostgreSQL はPostgreSQL。現在サポートしている唯一のエンジン。
	EnginePostgreSQL SupportedDatabaseEngine = "PostgreSQL"
)

// KnownEnvironment はデプロイ環境名。
type KnownEnvironment string

const (
	// Development は開発環境。
	Development KnownEnvironment = "Development"
	// Staging はステージング環境。
	Staging KnownEnvironment = "Staging"
	// Production は本番環境。
	Production KnownEnvironment = "Production"
)

// KnownEnvironments は既知の環境名を固定の順序で返す。
// 必須ファイルの列挙順はこの順序に従う。
func KnownEnvironments() []KnownEnvironment {
	return []KnownEnvironment{Development, Staging, Production}
}

// MatchEnvironment は環境名を大文字小文字を区別せずに既知の環境へ対応付ける。
// 一致するものがなければfalseを返す。
func MatchEnvironment(name string) (KnownEnvironment, bool) {
	for _, env := range KnownEnvironments() {
		if strings.EqualFold(string(env), strings.TrimSpace(name)) {
			return env, true
		}
	}
	return "", false
}

// DatabaseBinding はデータベース識別子とエンジンの組。
type DatabaseBinding struct {
	// ID はデータベース識別子。
	ID DatabaseIdentifier
	// Engine はデータベースエンジン。
	Engine SupportedDatabaseEngine
}

// Catalog はアプリケーションが接続するデータベースの一覧。
// 登録順が検証・読み込みの順序になる。
type Catalog []DatabaseBinding

// DefaultCatalog はアプリケーションが使用するデータベースの一覧を返す。
func DefaultCatalog() Catalog {
	return Catalog{
		{ID: PrimaryDb, Engine: EnginePostgreSQL},
	}
}

// Identifiers は登録順のデータベース識別子を返す。
func (c Catalog) Identifiers() []DatabaseIdentifier {
	ids := make([]DatabaseIdentifier, 0, len(c))
	for _, b := range c {
		ids = append(ids, b.ID)
	}
	return ids
}
