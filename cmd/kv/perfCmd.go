package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/shmKV/cmd/util"
	"github.com/ValentinKolb/shmKV/lib/shm"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for shmKV stores",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__test"
	perfNumThreads = 10
	perfKeySpread  = shm.Capacity
	perfSkip       = make([]string, 0)
	perfRegistry   = gometrics.NewRegistry()
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, shm.Capacity, util.WrapString("How many different keys to use for the tests (capped at the table capacity)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	// The table holds at most shm.Capacity entries, more keys would only
	// measure the full-table error path
	perfKeySpread = viper.GetInt("keys")
	if perfKeySpread > shm.Capacity {
		perfKeySpread = shm.Capacity
	}
	if perfKeySpread < 1 {
		perfKeySpread = 1
	}

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for shmKV stores")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Keys: %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	setResult := runBench("set", nil, func(counter int, key string) error {
		return kvStore.Put(key, []byte("test"))
	})
	results["set"] = setResult
	printResult("set", setResult)

	getResult := runBench("get", seedKeys, func(counter int, key string) error {
		_, _, err := kvStore.Get(key)
		return err
	})
	results["get"] = getResult
	printResult("get", getResult)

	getMissingResult := runBench("get-missing", nil, func(counter int, _ string) error {
		key := fmt.Sprintf("%s/missing-%d", perfKeyPrefix, counter%100)
		_, _, _ = kvStore.Get(key) // NotFound expected
		return nil
	})
	results["get-missing"] = getMissingResult
	printResult("get-missing", getMissingResult)

	deleteResult := runBench("delete", nil, func(counter int, key string) error {
		// a delete needs something to delete, measure the pair
		if err := kvStore.Put(key, []byte("test")); err != nil {
			return err
		}
		return kvStore.Delete(key)
	})
	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	statusResult := runBench("status", seedKeys, func(counter int, _ string) error {
		_, err := kvStore.Status()
		return err
	})
	results["status"] = statusResult
	printResult("status", statusResult)

	mixedResult := runBench("mixed", seedKeys, func(counter int, key string) error {
		switch counter % 4 {
		case 0:
			return kvStore.Put(key, []byte("test"))
		case 1:
			_, _, err := kvStore.Get(key)
			return err
		case 2:
			return kvStore.Delete(key)
		default:
			_, err := kvStore.Status()
			return err
		}
	})
	results["mixed"] = mixedResult
	printResult("mixed", mixedResult)

	// Print latency distributions recorded during the benchmarks
	printPercentiles()

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// runBench runs one benchmark. Each operation is additionally recorded in a
// per-benchmark timer so latency percentiles can be reported afterwards.
func runBench(name string, seed func(string), op func(counter int, key string) error) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(name) {
			return
		}

		// prepare keys
		getKey, iter := getKeys(name)

		if seed != nil {
			iter(seed)
		}

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := kvStore.Delete(k); err != nil {
					// NotFound is fine, the benchmark may have deleted it
					return
				}
			})
		})

		timer := gometrics.GetOrRegisterTimer(name, perfRegistry)

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := op(counter, getKey(counter)); err != nil {
					log.Printf("(%s) - operation failed: %v\n", name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})
}

// seedKeys fills a key with a test value before a read-heavy benchmark
func seedKeys(k string) {
	if err := kvStore.Put(k, []byte("test")); err != nil {
		log.Printf("(seed) - error setting key: %v\n", err)
	}
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// printPercentiles prints the latency distribution of every benchmark
func printPercentiles() {
	fmt.Println()
	fmt.Printf("%-20s%12s%12s%12s%12s\n", "latency", "mean", "p50", "p95", "p99")

	perfRegistry.Each(func(name string, metric interface{}) {
		timer, ok := metric.(gometrics.Timer)
		if !ok || timer.Count() == 0 {
			return
		}
		snapshot := timer.Snapshot()
		ps := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})
		fmt.Printf("%-20s%12s%12s%12s%12s\n",
			name,
			time.Duration(snapshot.Mean()),
			time.Duration(ps[0]),
			time.Duration(ps[1]),
			time.Duration(ps[2]),
		)
	})
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"MeanNs", "P50Ns", "P95Ns", "P99Ns",
		"Endpoints", "Store", "Segment", "TimeoutSec", "RetryCount",
		"Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		var mean, p50, p95, p99 float64
		if metric := perfRegistry.Get(test); metric != nil {
			if timer, ok := metric.(gometrics.Timer); ok {
				snapshot := timer.Snapshot()
				ps := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})
				mean, p50, p95, p99 = snapshot.Mean(), ps[0], ps[1], ps[2]
			}
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			fmt.Sprintf("%.0f", mean),
			fmt.Sprintf("%.0f", p50),
			fmt.Sprintf("%.0f", p95),
			fmt.Sprintf("%.0f", p99),
			strings.Join(config.Endpoints, ";"),
			config.Store,
			viper.GetString("segment"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
