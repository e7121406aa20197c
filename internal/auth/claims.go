package auth

import "fmt"

// IdentityClaims は外部IDトークンから取り出した検証済みの属性。
// Verifierの検証に成功した場合にのみ生成し、未検証の入力から組み立ててはならない。
type IdentityClaims struct {
	// Email は検証済みのメールアドレス。
	Email string
	// Name は表示名。トークンに含まれない場合は空。
	Name string
}

// String はログ出力用の文字列を返す。
func (c IdentityClaims) String() string {
	return fmt.Sprintf("IdentityClaims{Email:%s Name:%s}", c.Email, c.Name)
}
