package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// --- Main Function ---
func main() {
	// Define command-line flags
	mode := flag.String("mode", "api", "Query mode: 'api' to query via HTTP API, 'direct' to query ClickHouse directly.")
	apiAddr := flag.String("api", "http://localhost:8080", "Base URL of ts-api.")
	runName := flag.String("run", "", "Run to query (optional; lists runs when empty).")
	baseline := flag.String("baseline", "", "Baseline run; compares -run against it when set.")
	metric := flag.String("metric", "mean", "Metric used for comparisons.")
	flag.Parse()

	log.Printf("Running in '%s' mode.", *mode)

	switch *mode {
	case "api":
		queryViaAPI(*apiAddr, *runName, *baseline, *metric)
	case "direct":
		directQueryClickHouse(*runName)
	default:
		log.Fatalf("Invalid mode: %s. Use 'api' or 'direct'.", *mode)
	}
}

// --- API Query Logic ---
func queryViaAPI(apiAddr, runName, baseline, metric string) {
	apiURL := apiAddr + "/api/v1/runs"
	switch {
	case runName != "" && baseline != "":
		q := url.Values{}
		q.Set("baseline", baseline)
		q.Set("comparison", runName)
		q.Set("metric", metric)
		apiURL = apiAddr + "/api/v1/compare?" + q.Encode()
	case runName != "":
		apiURL = fmt.Sprintf("%s/api/v1/runs/%s/fct", apiAddr, url.PathEscape(runName))
	}

	log.Printf("Sending request to %s", apiURL)

	resp, err := http.Get(apiURL)
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	var prettyJSON bytes.Buffer
	err = json.Indent(&prettyJSON, respBody, "", "  ")
	if err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}

	log.Println("---")
	fmt.Println(prettyJSON.String())
}

// --- Direct ClickHouse Query Logic ---
func directQueryClickHouse(runName string) {
	connOpts := clickhouse.Options{
		Addr: []string{"localhost:19000"},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "123",
		},
	}

	query := `
		SELECT RunName, Band, Count, AvgMs, P99Ms, Completed, Total
		FROM fct_stats
		WHERE (RunName, Timestamp) IN (SELECT RunName, max(Timestamp) FROM fct_stats GROUP BY RunName)
	`
	args := []interface{}{}
	if runName != "" {
		query += " AND RunName = ?"
		args = append(args, runName)
	}
	query += " ORDER BY RunName, Band"

	conn, err := clickhouse.Open(&connOpts)
	if err != nil {
		log.Fatalf("Error connecting to ClickHouse: %v", err)
	}
	defer conn.Close()

	log.Println("Successfully connected to ClickHouse.")

	rows, err := conn.Query(context.Background(), query, args...)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	defer rows.Close()

	log.Println("--- FCT Statistics (Direct) ---")

	var foundResult bool
	for rows.Next() {
		foundResult = true
		var (
			name, band       string
			count            uint32
			avgMs, p99Ms     *float64
			completed, total uint32
		)

		if err := rows.Scan(&name, &band, &count, &avgMs, &p99Ms, &completed, &total); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}

		fmt.Printf("Run: %s  Band: %s\n", name, band)
		fmt.Printf("  Flows: %d (%d/%d completed)\n", count, completed, total)
		fmt.Printf("  Avg FCT: %s ms  P99 FCT: %s ms\n", orNA(avgMs), orNA(p99Ms))
		fmt.Println("---------------------")
	}

	if !foundResult {
		log.Println("No data found for the specified criteria.")
	}

	if err := rows.Err(); err != nil {
		log.Printf("An error occurred during row iteration: %v", err)
	}
}

func orNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", *v)
}
