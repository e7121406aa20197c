package bootstrap

import "testing/fstest"

// testSecretJSON はテスト用のデータベースシークレット。
const testSecretJSON = `{"username":"app","password":"p@ss;word","host":"db.internal","port":5432,"databaseName":"aida"}`

// validContent は必須ファイルがすべて揃ったコンテンツルートを返す。
func validContent() fstest.MapFS {
	return fstest.MapFS{
		"Secrets/AppSecrets.json":           {Data: []byte(`{"JwtAuth":{"SecretKey":"0123456789abcdef0123456789abcdef-master"}}`)},
		"Secrets/AppSecrets.PrimaryDb.json": {Data: []byte(testSecretJSON)},
		"AppSettings.json": {Data: []byte(`{
			"ConnectionStrings": {"PrimaryDb": "host=[[Host]] port=[[Port]] user=[[UserId]] password=[[Password]] dbname=[[DatabaseName]]"},
			"JwtAuth": {"Issuer": "aida-core", "Audience": "aida-clients", "TokenExpiryInMinutes": "60", "SecretKey": "overridden-by-master"},
			"GoogleConfiguration": {"ClientId": "client.apps.googleusercontent.com"},
			"Roles": {"AdminEmail": "owner@example.com"},
			"AllowedOrigins": ["https://app.example.com"],
			"MaxRequestBodySize": 2048
		}`)},
		"AppSettings.Development.json": {Data: []byte(`{"AllowedOrigins": ["http://localhost:3000"], "Server": {"Port": 5000}}`)},
		"AppSettings.Staging.json":     {Data: []byte(`{"Server": {"Port": 6000}}`)},
		"AppSettings.Production.json":  {Data: []byte(`{}`)},
	}
}

// staticChecker は登録されたパスだけが存在するFileChecker。
type staticChecker map[string]bool

func (c staticChecker) Exists(p ArtifactPath) bool {
	return c[p.String()]
}
