// Checkresults validates CSV output from the loadtest tool. Beyond the
// duplicate-index check, it cross-checks each row's processors_tried trail
// against its own status/processor_used/decline_type — catching the class
// of bug where the engine's summary fields and its trail disagree about
// what actually happened to a transaction.
//
// Usage:
//
//	go run ./cmd/checkresults -csv results.csv -expected 5000
//
// Exit codes:
//
//	0 - verification passed
//	2 - file errors or malformed CSV
//	3 - duplicate indices found
//	4 - trail/summary inconsistency found
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// validDeclineTypes mirrors the decline_type values the engine ever sets
// on a Response: "hard" for a card-level decline, "soft" for everything
// that fell through to the next processor or exhausted the chain.
var validDeclineTypes = map[string]bool{"hard": true, "soft": true}

func main() {
	csvPath := flag.String("csv", "results.csv", "Path to CSV produced by loadtest")
	expected := flag.Int("expected", 0, "Expected number of rows (optional)")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open csv: %v\n", err)
		os.Exit(2)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read csv: %v\n", err)
		os.Exit(2)
	}

	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "csv empty\n")
		os.Exit(2)
	}

	// header expected: idx,timestamp,status,processor_used,decline_type,processors_tried,http_status,duration_ms
	header := rows[0]
	if len(header) < 8 {
		fmt.Fprintf(os.Stderr, "unexpected csv header: %v\n", header)
		os.Exit(2)
	}

	idxSeen := map[int]bool{}
	statusCounts := map[string]int{}
	processorUsedCounts := map[string]int{}
	trailAppearances := map[string]int{}
	declineTypeCounts := map[string]int{}

	inconsistencies := 0

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 8 {
			fmt.Fprintf(os.Stderr, "malformed row %d: %v\n", i, row)
			os.Exit(2)
		}
		idx, err := strconv.Atoi(row[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid idx at row %d: %v\n", i, err)
			os.Exit(2)
		}
		if idxSeen[idx] {
			fmt.Printf("DUPLICATE idx=%d at csv row %d\n", idx, i)
		}
		idxSeen[idx] = true

		status := row[2]
		processorUsed := row[3]
		declineType := row[4]
		trail := splitTrail(row[5])

		statusCounts[status]++
		if processorUsed != "" {
			processorUsedCounts[processorUsed]++
		}
		if declineType != "" {
			declineTypeCounts[declineType]++
		}
		for _, token := range trail {
			trailAppearances[trailProcessorName(token)]++
		}

		if msg := checkRowConsistency(idx, status, processorUsed, declineType, trail); msg != "" {
			fmt.Println(msg)
			inconsistencies++
		}
	}

	totalRows := len(rows) - 1
	unique := len(idxSeen)
	fmt.Printf("Total rows: %d  Unique idx: %d\n", totalRows, unique)

	if *expected > 0 && totalRows != *expected {
		fmt.Printf("Warning: total rows (%d) != expected (%d)\n", totalRows, *expected)
	}

	if totalRows != unique {
		fmt.Printf("ERROR: found %d duplicate indices\n", totalRows-unique)
		os.Exit(3)
	}

	fmt.Println("Status counts:")
	for k, v := range statusCounts {
		fmt.Printf("  %s -> %d\n", k, v)
	}

	fmt.Println("Decline type counts:")
	for k, v := range declineTypeCounts {
		fmt.Printf("  %s -> %d\n", k, v)
	}

	fmt.Println("Processor used counts (final outcome only):")
	for k, v := range processorUsedCounts {
		fmt.Printf("  %s -> %d\n", k, v)
	}

	fmt.Println("Processor trail appearances (every attempt, including skips/retries):")
	for k, v := range trailAppearances {
		fmt.Printf("  %s -> %d\n", k, v)
		if v < processorUsedCounts[k] {
			fmt.Printf("ERROR: %s used as final processor %d times but only appears %d times in trails\n", k, processorUsedCounts[k], v)
			inconsistencies++
		}
	}

	if inconsistencies > 0 {
		fmt.Printf("ERROR: found %d trail/summary inconsistencies\n", inconsistencies)
		os.Exit(4)
	}

	fmt.Println("Verification passed: no duplicate indices and trails agree with summaries.")
}

// splitTrail parses a processors_tried cell of the form
// "vortexpay(rate_limited)|swiftpay(success)" into its individual tokens.
func splitTrail(cell string) []string {
	if cell == "" {
		return nil
	}
	return strings.Split(cell, "|")
}

// trailProcessorName extracts the processor name from a trail token such
// as "swiftpay(success)" or "pixflow(hard_decline:card_reported_stolen)".
func trailProcessorName(token string) string {
	if i := strings.IndexByte(token, '('); i >= 0 {
		return token[:i]
	}
	return token
}

// checkRowConsistency cross-checks one row's summary fields against its
// own trail and returns a human-readable complaint, or "" if consistent.
func checkRowConsistency(idx int, status, processorUsed, declineType string, trail []string) string {
	switch status {
	case "approved":
		if processorUsed == "" {
			return fmt.Sprintf("INCONSISTENT idx=%d: status=approved but processor_used is empty", idx)
		}
		if declineType != "" {
			return fmt.Sprintf("INCONSISTENT idx=%d: status=approved but decline_type=%q is set", idx, declineType)
		}
		if len(trail) == 0 {
			return fmt.Sprintf("INCONSISTENT idx=%d: status=approved but processors_tried trail is empty", idx)
		}
		last := trail[len(trail)-1]
		if trailProcessorName(last) != processorUsed || !strings.Contains(last, "(success)") {
			return fmt.Sprintf("INCONSISTENT idx=%d: processor_used=%s but trail ends with %q", idx, processorUsed, last)
		}

	case "declined":
		if declineType == "" {
			return fmt.Sprintf("INCONSISTENT idx=%d: status=declined but decline_type is empty", idx)
		}
		if !validDeclineTypes[declineType] {
			return fmt.Sprintf("INCONSISTENT idx=%d: unrecognized decline_type %q", idx, declineType)
		}
		// circuit_open tokens for later processors may follow the last
		// processor actually tried, which is the one processor_used names.
		lastTried := len(trail) - 1
		for lastTried >= 0 && strings.Contains(trail[lastTried], "(circuit_open)") {
			lastTried--
		}
		if processorUsed != "" && lastTried >= 0 {
			last := trail[lastTried]
			if trailProcessorName(last) != processorUsed {
				return fmt.Sprintf("INCONSISTENT idx=%d: processor_used=%s but trail ends with %q", idx, processorUsed, last)
			}
			if declineType == "hard" && !strings.Contains(last, "hard_decline") {
				return fmt.Sprintf("INCONSISTENT idx=%d: decline_type=hard but trail ends with %q", idx, last)
			}
		}
	}
	return ""
}
