package bootstrap

import (
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/nao1215/aida/internal/config"
)

// Options はLoadの入力。
type Options struct {
	// FS はコンテンツルート。通常は os.DirFS(contentRoot)。
	FS fs.FS
	// Environment は有効な環境名。既知の環境と大文字小文字を区別せずに照合する。
	Environment string
	// Catalog は接続するデータベースの一覧。nilならDefaultCatalog。
	Catalog Catalog
	// Logger は起動処理のログ出力先。
	Logger zerolog.Logger
}

// Load は必須ファイルの検証、設定の重ね合わせ、接続文字列の組み立てを行い、
// 不変のアプリケーション設定を返す。
//
// 必須ファイルの検証は他のどの設定ソースよりも先に行い、欠けていれば何も読み込まずに失敗する。
// 重ね合わせの順序は、共通設定、環境別設定、マスターシークレット、
// データベースごとのシークレット（インメモリ）で、後のものが優先される。
func Load(opts Options) (*config.App, error) {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	checker := NewFSChecker(opts.FS)

	if err := NewRequiredArtifactPolicy(checker).Validate(catalog.Identifiers()); err != nil {
		return nil, err
	}
	opts.Logger.Debug().Msg("必須ファイルの存在を確認しました")

	settings, err := loadSettings(opts.FS, checker, opts.Environment)
	if err != nil {
		return nil, err
	}

	reader := NewSecretReader(opts.FS)
	for _, b := range catalog {
		switch b.Engine {
		case EnginePostgreSQL:
			secret, err := reader.Read(b.ID)
			if err != nil {
				return nil, err
			}
			settings.AddMemory("secrets:"+b.ID.String(), toKeyValues(SecretProperties(b.ID, secret)))
		default:
			return nil, fmt.Errorf("%s (%s): %w", b.ID, b.Engine, ErrUnsupportedEngine)
		}
	}

	app, err := config.FromSettings(settings, opts.Environment)
	if err != nil {
		return nil, err
	}

	for _, b := range catalog {
		connString, err := ComposeFor(settings, b.ID)
		if err != nil {
			return nil, err
		}
		app.Databases[b.ID.String()] = config.Database{
			Engine:           string(b.Engine),
			ConnectionString: connString,
		}
	}

	if err := app.Validate(); err != nil {
		return nil, err
	}

	opts.Logger.Info().
		Str("environment", app.Environment).
		Strs("sources", settings.Sources()).
		Int("databases", len(app.Databases)).
		Msg("設定を読み込みました")
	return app, nil
}

// settingsFile は設定ソースとして読み込むファイルとその表記ルール。
type settingsFile struct {
	name string
	rule CaseRule
}

// loadSettings は設定ファイルを優先度の低い順に重ねる。
// 環境名が既知の環境に一致しない場合、環境別設定は読み込まない。
func loadSettings(fsys fs.FS, checker FileChecker, environment string) (*config.Settings, error) {
	settings := config.NewSettings()

	files := []settingsFile{{name: BaseSettingsFile, rule: CanonicalOrLower}}
	if env, ok := MatchEnvironment(environment); ok {
		files = append(files, settingsFile{name: EnvironmentSettingsFile(env), rule: CanonicalOrLower})
	}
	files = append(files, settingsFile{name: MasterSecretsFile, rule: CanonicalOnly})

	for _, f := range files {
		path, err := NewArtifactPath(f.name)
		if err != nil {
			return nil, &ArtifactError{Name: f.name, Err: err}
		}
		resolved, ok := f.rule.Resolve(checker, path)
		if !ok {
			return nil, &ArtifactError{Name: f.name, Err: ErrMissingArtifact}
		}
		if err := settings.AddJSONFile(fsys, resolved.String()); err != nil {
			return nil, &ArtifactError{Name: f.name, Err: fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)}
		}
	}
	return settings, nil
}

// toKeyValues はPropertyを設定ストアの型に変換する。
func toKeyValues(props []Property) []config.KeyValue {
	kvs := make([]config.KeyValue, 0, len(props))
	for _, p := range props {
		kvs = append(kvs, config.KeyValue{Key: p.Key, Value: p.Value})
	}
	return kvs
}
