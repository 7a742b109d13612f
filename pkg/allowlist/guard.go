package allowlist

import (
	"fmt"
	"regexp"
	"strings"
)

// forbiddenVerbs are statement verbs that must never appear in an
// allowlisted template. The registry is static, so this check is defense in
// depth against a bad template landing in review.
var forbiddenVerbs = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "GRANT", "REVOKE", "EXECUTE", "CALL",
	"MERGE", "UPSERT",
}

// dangerousFunctions are server-side functions that can reach the
// filesystem or other databases.
var dangerousFunctions = []string{
	"pg_read_file", "pg_read_binary_file", "pg_write_file",
	"lo_import", "lo_export", "dblink", "dblink_exec",
	"pg_execute_server_program",
}

var verbPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(forbiddenVerbs))
	for i, verb := range forbiddenVerbs {
		patterns[i] = regexp.MustCompile(`\b` + verb + `\b`)
	}
	return patterns
}()

// GuardSQL checks that sql is a single SELECT statement free of comments,
// forbidden verbs, and dangerous functions.
func GuardSQL(sql string) error {
	upper := strings.ToUpper(strings.TrimSpace(sql))

	if !strings.HasPrefix(upper, "SELECT") {
		if !(strings.HasPrefix(upper, "WITH") && strings.Contains(upper, "SELECT")) {
			return fmt.Errorf("only SELECT statements are allowed")
		}
	}

	for i, re := range verbPatterns {
		if re.MatchString(upper) {
			return fmt.Errorf("forbidden operation: %s", forbiddenVerbs[i])
		}
	}

	lower := strings.ToLower(sql)
	for _, fn := range dangerousFunctions {
		if strings.Contains(lower, fn) {
			return fmt.Errorf("dangerous function: %s", fn)
		}
	}

	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") {
		return fmt.Errorf("SQL comments are not allowed")
	}

	if strings.Count(sql, ";") > 1 {
		return fmt.Errorf("only one statement per query is allowed")
	}

	return nil
}

// GuardAll validates every registered template. Called once at startup so a
// bad template fails fast instead of at query time.
func GuardAll() error {
	for id, t := range registry {
		if err := GuardSQL(t.SQL); err != nil {
			return fmt.Errorf("template %q failed SQL guard: %w", id, err)
		}
	}
	return nil
}
