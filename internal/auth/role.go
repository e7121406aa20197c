package auth

// Role はアプリケーショントークンに埋め込むロール。
type Role string

const (
	// RoleAdmin は特権アドレスと完全一致したユーザーのロール。
	RoleAdmin Role = "Admin"
	// RoleUser はそれ以外の検証済みユーザーのロール。
	RoleUser Role = "User"
)

// String はロール名を返す。
func (r Role) String() string {
	return string(r)
}

// RoleFor は検証済みメールアドレスからロールを決定する。
// 特権アドレスと大文字小文字を含めて完全一致した場合のみAdminとなる。
// 特権アドレスが空の場合は誰もAdminにならない。
func RoleFor(email, privileged string) Role {
	if privileged != "" && email == privileged {
		return RoleAdmin
	}
	return RoleUser
}
