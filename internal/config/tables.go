package config

// Lookup tables shared by the scan components. They are read-only after
// init; components copy the slices they need at construction time.

// CommonEndpoints are the API paths probed on every target
var CommonEndpoints = []string{
	"/api/",
	"/api/v1/",
	"/api/users",
	"/api/auth",
	"/api/admin",
	"/api-docs",
	"/api/v1/auth",
	"/graphql",
	"/swagger.json",
	"/openapi.json",
	"/wp-json/",
	"/config.json",
	"/settings.json",
	"/env",
	"/.env",
	"/.git/HEAD",
	"/debug",
	"/phpinfo.php",
}

// SensitiveFiles are the configuration and artifact paths checked for exposure
var SensitiveFiles = []string{
	"/.env",
	"/env",
	"/config.json",
	"/config.js",
	"/settings.json",
	"/.git/HEAD",
	"/phpinfo.php",
}

// InjectionTemplates are parameterized CMS-style entry points tried on every
// target regardless of what the crawl found.
var InjectionTemplates = []string{
	"/index.php?id=1",
	"/product.php?id=1",
	"/products.php?id=1",
	"/article.php?id=1",
	"/news.php?id=1",
	"/page.php?id=1",
	"/item.php?id=1",
	"/view.php?id=1",
	"/category.php?cat=1",
	"/post.php?id=1",
}

// InjectionPayloads is the ordered list of benign probes tried per parameter
var InjectionPayloads = []string{
	"'",
	"' OR '1'='1",
	"\" OR \"1\"=\"1",
	"' OR 1=1--",
	"1' AND '1'='2",
	"' UNION SELECT NULL--",
	"') OR ('1'='1",
	"1 OR 1=1",
	"' OR 'a'='a' #",
	"1'; --",
}

// DatabaseErrorSignatures maps a DBMS name to regular expressions matching
// its driver error text
var DatabaseErrorSignatures = map[string][]string{
	"MySQL": {
		`SQL syntax.*MySQL`,
		`Warning.*mysql_.*`,
		`valid MySQL result`,
		`MySqlClient\.`,
		`com\.mysql\.jdbc\.exceptions`,
		`check the manual that corresponds to your (MySQL|MariaDB) server version`,
		`Unknown column '[^']+' in '[^']+'`,
	},
	"PostgreSQL": {
		`PostgreSQL.*ERROR`,
		`Warning.*\Wpg_.*`,
		`valid PostgreSQL result`,
		`Npgsql\.`,
		`PG::SyntaxError:`,
		`org\.postgresql\.util\.PSQLException`,
		`ERROR:\s+syntax error at or near`,
		`unterminated quoted string at or near`,
	},
	"Microsoft SQL Server": {
		`Driver.* SQL[\-\_\ ]*Server`,
		`OLE DB.* SQL Server`,
		`\bSQL Server[^<"]+Driver`,
		`Warning.*mssql_.*`,
		`\bSQL Server[^<"]+[0-9a-fA-F]{8}`,
		`System\.Data\.SqlClient\.SqlException`,
		`Unclosed quotation mark after the character string`,
		`Microsoft SQL Native Client error '[0-9a-fA-F]{8}`,
	},
	"Oracle": {
		`\bORA-[0-9][0-9][0-9][0-9]`,
		`Oracle error`,
		`Oracle.*Driver`,
		`Warning.*\Woci_.*`,
		`Warning.*\Wora_.*`,
		`quoted string not properly terminated`,
	},
	"SQLite": {
		`SQLite/JDBCDriver`,
		`SQLite\.Exception`,
		`System\.Data\.SQLite\.SQLiteException`,
		`Warning.*sqlite_.*`,
		`Warning.*SQLite3::`,
		`\[SQLITE_ERROR\]`,
		`SQLite error \d+:`,
		`unrecognized token:`,
		`near ".*": syntax error`,
	},
	"Microsoft Access": {
		`Microsoft Access Driver`,
		`JET Database Engine`,
		`Access Database Engine`,
		`Syntax error \(missing operator\) in query expression`,
	},
	"PDO": {
		`PDOException`,
		`SQLSTATE\[\w+\]`,
		`PDO::query\(\)`,
	},
}

// APIVocabulary holds path segment prefixes that suggest a programmatic endpoint
var APIVocabulary = []string{
	"endpoint", "rest", "swagger", "openapi", "webhook", "callback",
	"oauth", "auth", "token", "user", "admin", "dashboard", "data", "query",
}

// IDLikeParameters are query parameter names that mark a URL as an
// injection candidate
var IDLikeParameters = []string{
	"id", "uid", "user_id", "pid", "product_id", "cat", "cat_id", "category",
	"page_id", "item_id", "article", "article_id", "post", "post_id",
	"news_id", "view",
}

// StaticAssetExtensions are never queued for HTML crawling
var StaticAssetExtensions = []string{
	".js", ".mjs", ".css", ".map",
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp", ".bmp",
	".woff", ".woff2", ".ttf", ".eot", ".otf",
	".mp4", ".webm", ".mp3", ".wav", ".avi", ".mov",
	".pdf", ".zip", ".gz", ".tar", ".rar", ".7z",
}
