package bootstrap

import "fmt"

const (
	// MasterSecretsFile はマスターシークレットファイル。
	MasterSecretsFile = "Secrets/AppSecrets.json"
	// BaseSettingsFile は全環境共通の設定ファイル。
	BaseSettingsFile = "AppSettings.json"

	databaseSecretsFileFormat     = "Secrets/AppSecrets.%s.json"
	environmentSettingsFileFormat = "AppSettings.%s.json"
)

// DatabaseSecretsFile はデータベースごとのシークレットファイル名を返す。
func DatabaseSecretsFile(id DatabaseIdentifier) string {
	return fmt.Sprintf(databaseSecretsFileFormat, id)
}

// EnvironmentSettingsFile は環境ごとの設定ファイル名を返す。
func EnvironmentSettingsFile(env KnownEnvironment) string {
	return fmt.Sprintf(environmentSettingsFileFormat, env)
}

// RequiredArtifact は起動前に存在しなければならないファイルと、その表記ルールの組。
type RequiredArtifact struct {
	// Path は正規の表記のパス。
	Path ArtifactPath
	// Rule は受け付ける表記のルール。
	Rule CaseRule
}

// RequiredArtifactPolicy は起動に必須のファイルを列挙し、その存在を検証する。
//
// マスターシークレットファイルだけは正規の表記でしか確認しない。他のファイルは
// 小文字の表記も受け付ける。
type RequiredArtifactPolicy struct {
	// checker はファイルの存在確認に使用する。
	checker FileChecker
}

// NewRequiredArtifactPolicy は新しいRequiredArtifactPolicyを生成する。
func NewRequiredArtifactPolicy(checker FileChecker) *RequiredArtifactPolicy {
	return &RequiredArtifactPolicy{checker: checker}
}

// Required は必須ファイルを検証順に列挙する。
// 順序: マスターシークレット、データベースごとのシークレット（引数の順）、
// 共通設定、既知の環境ごとの設定（KnownEnvironmentsの順）。
func (p *RequiredArtifactPolicy) Required(databases []DatabaseIdentifier) ([]RequiredArtifact, error) {
	type entry struct {
		name string
		rule CaseRule
	}

	entries := make([]entry, 0, 2+len(databases)+len(KnownEnvironments()))
	entries = append(entries, entry{name: MasterSecretsFile, rule: CanonicalOnly})
	for _, db := range databases {
		entries = append(entries, entry{name: DatabaseSecretsFile(db), rule: CanonicalOrLower})
	}
	entries = append(entries, entry{name: BaseSettingsFile, rule: CanonicalOrLower})
	for _, env := range KnownEnvironments() {
		entries = append(entries, entry{name: EnvironmentSettingsFile(env), rule: CanonicalOrLower})
	}

	required := make([]RequiredArtifact, 0, len(entries))
	for _, e := range entries {
		path, err := NewArtifactPath(e.name)
		if err != nil {
			return nil, &ArtifactError{Name: e.name, Err: err}
		}
		required = append(required, RequiredArtifact{Path: path, Rule: e.rule})
	}
	return required, nil
}

// Validate は必須ファイルがすべて存在することを検証する。
// 最初に見つからなかったファイルの時点で ErrMissingArtifact を返し、以降は確認しない。
func (p *RequiredArtifactPolicy) Validate(databases []DatabaseIdentifier) error {
	required, err := p.Required(databases)
	if err != nil {
		return err
	}
	for _, r := range required {
		if _, ok := r.Rule.Resolve(p.checker, r.Path); !ok {
			return &ArtifactError{Name: r.Path.String(), Err: ErrMissingArtifact}
		}
	}
	return nil
}
