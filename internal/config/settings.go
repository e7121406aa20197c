package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// KeySeparator は設定キーの階層区切り文字。
const KeySeparator = ":"

// KeyValue は設定キーと値の組。
type KeyValue struct {
	// Key は設定キー（例: "JwtAuth:Issuer"）。
	Key string
	// Value は設定値。
	Value string
}

// layer は設定ソース1つ分のキーと値。キーは小文字に正規化して保持する。
type layer struct {
	// source はログ・エラー表示用のソース名。
	source string
	// values は正規化済みキーと値。
	values map[string]string
}

// Settings は複数の設定ソースを追加順に重ねたキー・バリューストア。
// 後から追加したソースの値が優先される。キーは大文字小文字を区別しない。
// 起動時に組み立てた後は読み取り専用として扱う。
type Settings struct {
	// layers は追加順の設定ソース。
	layers []layer
}

// NewSettings は空のSettingsを生成する。
func NewSettings() *Settings {
	return &Settings{}
}

// normalizeKey はキーを比較用に正規化する。
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// AddJSON はJSONドキュメントを平坦化して設定ソースとして追加する。
// ネストしたオブジェクトは "Parent:Child"、配列は "Parent:0" のキーになる。
func (s *Settings) AddJSON(source string, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		// 構文エラーのメッセージには値の一部が含まれるため位置だけを示す
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%s のJSON解析に失敗: オフセット %d で構文エラー", source, syntaxErr.Offset)
		}
		return fmt.Errorf("%s のJSON解析に失敗: %w", source, err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return fmt.Errorf("%s のルートはJSONオブジェクトである必要があります", source)
	}

	values := make(map[string]string)
	flatten("", root, values)
	s.layers = append(s.layers, layer{source: source, values: values})
	return nil
}

// AddJSONFile はfs.FS上のJSONファイルを設定ソースとして追加する。
func (s *Settings) AddJSONFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("%s の読み込みに失敗: %w", name, err)
	}
	return s.AddJSON(name, data)
}

// AddMemory はキーと値の組を設定ソースとして追加する。
func (s *Settings) AddMemory(source string, pairs []KeyValue) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		values[normalizeKey(p.Key)] = p.Value
	}
	s.layers = append(s.layers, layer{source: source, values: values})
}

// Sources は追加順の設定ソース名を返す。
func (s *Settings) Sources() []string {
	sources := make([]string, 0, len(s.layers))
	for _, l := range s.layers {
		sources = append(sources, l.source)
	}
	return sources
}

// Get はキーに対応する値を、最も優先度の高いソースから返す。
func (s *Settings) Get(key string) (string, bool) {
	k := normalizeKey(key)
	for i := len(s.layers) - 1; i >= 0; i-- {
		if v, ok := s.layers[i].values[k]; ok {
			return v, true
		}
	}
	return "", false
}

// GetOr はキーに対応する値を返す。存在しないか空の場合はdefaultValueを返す。
func (s *Settings) GetOr(key, defaultValue string) string {
	if v, ok := s.Get(key); ok && v != "" {
		return v
	}
	return defaultValue
}

// Strings は配列として格納された値（"Key:0", "Key:1", ...）を順に返す。
func (s *Settings) Strings(key string) []string {
	var values []string
	for i := 0; ; i++ {
		v, ok := s.Get(key + KeySeparator + strconv.Itoa(i))
		if !ok {
			return values
		}
		values = append(values, v)
	}
}

// Section はセクション直下の値をマップとして返す。
// さらに下の階層を持つキーは含めない。マップのキーは小文字に正規化されている。
func (s *Settings) Section(section string) map[string]any {
	prefix := normalizeKey(section) + KeySeparator
	out := make(map[string]any)
	for _, l := range s.layers {
		for k := range l.values {
			rest, ok := strings.CutPrefix(k, prefix)
			if !ok || rest == "" || strings.Contains(rest, KeySeparator) {
				continue
			}
			if _, seen := out[rest]; seen {
				continue
			}
			v, _ := s.Get(k)
			out[rest] = v
		}
	}
	return out
}

// Decode はセクション直下の値を構造体にデコードする。
// フィールド名は大文字小文字を区別せずに対応付け、文字列は数値や真偽値に変換する。
func (s *Settings) Decode(section string, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("デコーダーの生成に失敗: %w", err)
	}
	if err := dec.Decode(s.Section(section)); err != nil {
		return fmt.Errorf("%s セクションのデコードに失敗: %w", section, err)
	}
	return nil
}

// flatten はJSONの値を再帰的に平坦化する。
func flatten(prefix string, value any, out map[string]string) {
	join := func(child string) string {
		if prefix == "" {
			return normalizeKey(child)
		}
		return prefix + KeySeparator + normalizeKey(child)
	}

	switch v := value.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(join(k), child, out)
		}
	case []any:
		for i, child := range v {
			flatten(join(strconv.Itoa(i)), child, out)
		}
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = v
	case json.Number:
		out[prefix] = v.String()
	case bool:
		out[prefix] = strconv.FormatBool(v)
	default:
		out[prefix] = fmt.Sprint(v)
	}
}
