package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

func main() {
	baseURL := flag.String("target", "http://localhost:3000", "base URL of a running contractcache")
	contract := flag.String("contract", "", "contract address to query (required)")
	freq := flag.Int("rate", 50, "requests per second")
	duration := flag.Duration("duration", 30*time.Second, "attack duration")
	maxTokenID := flag.Int("max-token-id", 10000, "token ids are drawn from [0, max-token-id]")
	flag.Parse()

	if *contract == "" {
		fmt.Fprintln(os.Stderr, "-contract is required")
		os.Exit(2)
	}

	gofakeit.Seed(time.Now().UnixNano())

	rate := vegeta.Rate{Freq: *freq, Per: time.Second}
	attacker := vegeta.NewAttacker()

	var metrics vegeta.Metrics
	for res := range attacker.Attack(newTargeter(*baseURL, *contract, *maxTokenID), rate, *duration, "contractcache") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Printf("99th percentile: %s\n", metrics.Latencies.P99)
	fmt.Printf("95th percentile: %s\n", metrics.Latencies.P95)
	fmt.Printf("Mean: %s\n", metrics.Latencies.Mean)
	fmt.Printf("Max: %s\n", metrics.Latencies.Max)
	fmt.Printf("Requests per second: %.2f\n", metrics.Rate)
	fmt.Printf("Success ratio: %.2f%%\n", metrics.Success*100)
	fmt.Printf("Status codes: %v\n", metrics.StatusCodes)
	fmt.Printf("Total requests: %d\n", metrics.Requests)

	fmt.Println("\n=== Report ===")
	reporter := vegeta.NewTextReporter(&metrics)
	if err := reporter.Report(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

// newTargeter mixes token-scoped reads over random ids with collection-level reads
func newTargeter(baseURL, contract string, maxTokenID int) vegeta.Targeter {
	return func(tgt *vegeta.Target) error {
		tokenID := strconv.Itoa(gofakeit.Number(0, maxTokenID))

		var path string
		switch gofakeit.Number(0, 9) {
		case 0:
			path = "/name"
		case 1:
			path = "/totalSupply"
		case 2, 3, 4:
			path = "/ownerOf?tokenId=" + tokenID
		default:
			path = "/tokenURI?tokenId=" + tokenID
		}

		tgt.Method = http.MethodGet
		tgt.URL = baseURL + "/contract/" + contract + path
		tgt.Header = http.Header{
			"X-Request-ID": {uuid.New().String()},
		}
		return nil
	}
}
