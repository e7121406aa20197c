// Package config はアプリケーション設定の重ね合わせと型付きの設定値を提供する。
//
// 共通設定ファイル、環境別設定ファイル、マスターシークレットファイル、
// インメモリの値の順に重ね、後のソースを優先する。キーは "Section:Key" 形式で
// 大文字小文字を区別しない。組み立てた設定は起動後に変更しない。
package config
