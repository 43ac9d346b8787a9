// ticksql is an interactive SQL shell for a tickbench DuckDB database.
// It is intended for poking at a database produced by tickbench.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/c-bata/go-prompt"

	"github.com/xtxerr/tickbench/internal/logging"
	"github.com/xtxerr/tickbench/internal/storage/relational"
)

// sqlKeywords seed the completer alongside table and column names.
var sqlKeywords = []prompt.Suggest{
	{Text: "SELECT", Description: "keyword"},
	{Text: "FROM", Description: "keyword"},
	{Text: "WHERE", Description: "keyword"},
	{Text: "GROUP BY", Description: "keyword"},
	{Text: "ORDER BY", Description: "keyword"},
	{Text: "LIMIT", Description: "keyword"},
	{Text: "JOIN", Description: "keyword"},
	{Text: "ON", Description: "keyword"},
	{Text: "AS", Description: "keyword"},
	{Text: "COUNT", Description: "function"},
	{Text: "SUM", Description: "function"},
	{Text: "AVG", Description: "function"},
	{Text: "MIN", Description: "function"},
	{Text: "MAX", Description: "function"},
}

type shell struct {
	store   *relational.Store
	timeout time.Duration

	// tables is loaded once at startup for completion.
	tables []prompt.Suggest
}

func main() {
	dbPath := flag.String("db", "data/market.duckdb", "DuckDB database file")
	timeout := flag.Duration("timeout", 30*time.Second, "query timeout")
	flag.Parse()

	logging.Init(logging.ParseLevel("warn"), false)

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", *dbPath, err)
		os.Exit(1)
	}

	cfg := relational.DefaultConfig()
	cfg.Path = *dbPath
	cfg.QueryTimeout = *timeout

	store, err := relational.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	sh := &shell{store: store, timeout: *timeout}
	sh.loadTables()

	fmt.Printf("ticksql connected to %s (type .help for help, exit to quit)\n", *dbPath)

	p := prompt.New(
		sh.execute,
		sh.complete,
		prompt.OptionTitle("ticksql"),
		prompt.OptionPrefix("ticksql> "),
		prompt.OptionHistory([]string{"SELECT * FROM tickers"}),
	)
	p.Run()
}

func (sh *shell) loadTables() {
	ctx, cancel := context.WithTimeout(context.Background(), sh.timeout)
	defer cancel()

	tables, err := sh.store.Tables(ctx)
	if err != nil {
		return
	}
	for _, t := range tables {
		sh.tables = append(sh.tables, prompt.Suggest{Text: t, Description: "table"})
	}
}

func (sh *shell) complete(d prompt.Document) []prompt.Suggest {
	word := d.GetWordBeforeCursor()
	if word == "" {
		return nil
	}
	suggestions := append([]prompt.Suggest{}, sqlKeywords...)
	suggestions = append(suggestions, sh.tables...)
	return prompt.FilterHasPrefix(suggestions, word, true)
}

func (sh *shell) execute(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	switch strings.ToLower(input) {
	case "exit", "quit", ".quit":
		fmt.Println("bye")
		os.Exit(0)
	case ".help":
		fmt.Println("  .tables        list tables")
		fmt.Println("  .help          show this help")
		fmt.Println("  exit, quit     leave the shell")
		fmt.Println("  anything else  executed as SQL")
		return
	case ".tables":
		for _, t := range sh.tables {
			fmt.Println(" ", t.Text)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sh.timeout)
	defer cancel()

	start := time.Now()
	columns, rows, err := sh.store.ExecuteSQL(ctx, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}

	printRows(columns, rows)
	fmt.Printf("%d row(s) in %v\n", len(rows), time.Since(start).Round(time.Millisecond))
}

func printRows(columns []string, rows []map[string]interface{}) {
	if len(rows) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))

	for _, row := range rows {
		fields := make([]string, len(columns))
		for i, col := range columns {
			fields[i] = formatValue(row[col])
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
	w.Flush()
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return fmt.Sprintf("%g", x)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
