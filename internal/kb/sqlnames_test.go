package kb

import (
	"reflect"
	"testing"
)

func Test_ExtractTableNames(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		sql  string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace", "   \n", nil},
		{"simple select", "SELECT * FROM users", []string{"users"}},
		{"backticks", "SELECT * FROM `user_events` WHERE id = 1", []string{"user_events"}},
		{
			"joins",
			"SELECT u.id FROM users u JOIN orders o ON o.user_id = u.id LEFT JOIN payments p ON p.order_id = o.id",
			[]string{"orders", "payments", "users"},
		},
		{
			"insert select",
			"INSERT INTO daily_stats SELECT day, COUNT(*) FROM events GROUP BY day",
			[]string{"daily_stats", "events"},
		},
		{"update", "UPDATE accounts SET balance = 0 WHERE frozen = 1", []string{"accounts"}},
		{"lowercase keywords", "select name from customers", []string{"customers"}},
		{
			"duplicate references",
			"SELECT * FROM users WHERE id IN (SELECT user_id FROM users)",
			[]string{"users"},
		},
		{"no tables", "SELECT 1", nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractTableNames(tc.sql)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ExtractTableNames(%q) = %v, want %v", tc.sql, got, tc.want)
			}
		})
	}
}
