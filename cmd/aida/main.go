// aidaサービスのエントリポイント。
// 起動時に必須の設定ファイルとシークレットを検証し、Googleログインで
// アプリケーショントークンを発行するHTTP APIを提供する。
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
