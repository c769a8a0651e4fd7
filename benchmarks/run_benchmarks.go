// Package main runs the mqttswarm benchmarks and writes the results as JSON and Markdown.
// Run with: go run benchmarks/run_benchmarks.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BenchmarkResults holds all benchmark data
type BenchmarkResults struct {
	Timestamp   string           `json:"timestamp"`
	Environment Environment      `json:"environment"`
	Groups      map[string]Group `json:"groups"`
	Summary     Summary          `json:"summary"`
}

type Environment struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPU       string `json:"cpu"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
}

type Group struct {
	Benchmarks []Benchmark `json:"benchmarks"`
}

type Benchmark struct {
	Name        string  `json:"name"`
	NsPerOp     float64 `json:"ns_per_op"`
	OpsPerSec   float64 `json:"ops_per_sec"`
	BytesPerOp  int64   `json:"bytes_per_op"`
	AllocsPerOp int64   `json:"allocs_per_op"`
}

type Summary struct {
	SessionsPerSec         float64 `json:"sessions_per_sec"`
	ParallelSessionsPerSec float64 `json:"parallel_sessions_per_sec"`
	SessionLatencyNs       float64 `json:"session_latency_ns"`
	QoS0OpsPerSec          float64 `json:"qos0_ops_per_sec"`
	QoS1OpsPerSec          float64 `json:"qos1_ops_per_sec"`
	QoS2OpsPerSec          float64 `json:"qos2_ops_per_sec"`
}

// groups maps a report section to the benchmark pattern it runs.
var groups = map[string]string{
	"session": "BenchmarkSession",
	"client":  "BenchmarkClient",
	"catalog": "BenchmarkCatalog",
}

func main() {
	fmt.Println("==========================================")
	fmt.Println("   MQTTSWARM BENCHMARK SUITE")
	fmt.Println("==========================================")
	fmt.Println()

	results := BenchmarkResults{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Environment: Environment{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPU:       getCPUInfo(),
			NumCPU:    runtime.NumCPU(),
			GoVersion: runtime.Version(),
		},
		Groups: make(map[string]Group),
	}

	for _, name := range sortedGroupNames() {
		fmt.Printf("Running %s benchmarks...\n", name)
		results.Groups[name] = Group{Benchmarks: runBenchmarks(groups[name])}
	}

	results.Summary = calculateSummary(results.Groups)

	if err := os.MkdirAll("benchmarks/results", 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating results directory: %v\n", err)
		os.Exit(1)
	}

	jsonPath := filepath.Join("benchmarks", "results", "latest.json")
	writeJSON(results, jsonPath)
	fmt.Printf("\nJSON results: %s\n", jsonPath)

	mdPath := filepath.Join("benchmarks", "results", "LATEST.md")
	writeMarkdown(results, mdPath)
	fmt.Printf("Markdown results: %s\n", mdPath)

	printSummary(results)
}

func sortedGroupNames() []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getCPUInfo() string {
	if runtime.GOOS == "linux" {
		data, err := os.ReadFile("/proc/cpuinfo")
		if err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if strings.HasPrefix(line, "model name") {
					if _, v, ok := strings.Cut(line, ":"); ok {
						return strings.TrimSpace(v)
					}
				}
			}
		}
	}
	return "unknown"
}

func runBenchmarks(pattern string) []Benchmark {
	cmd := exec.Command("go", "test", "-run=^$", "-bench="+pattern, "-benchtime=2s", "-benchmem", "./tests/performance/...")
	output, _ := cmd.CombinedOutput()

	return parseBenchmarkOutput(string(output))
}

// Pattern: BenchmarkName-N    iterations    ns/op    bytes/op    allocs/op
var benchLine = regexp.MustCompile(`(Benchmark[\w/]+)-\d+\s+(\d+)\s+([\d.]+)\s+ns/op\s+(\d+)\s+B/op\s+(\d+)\s+allocs/op`)

func parseBenchmarkOutput(output string) []Benchmark {
	var benchmarks []Benchmark

	for _, match := range benchLine.FindAllStringSubmatch(output, -1) {
		nsPerOp, _ := strconv.ParseFloat(match[3], 64)
		bytesPerOp, _ := strconv.ParseInt(match[4], 10, 64)
		allocsPerOp, _ := strconv.ParseInt(match[5], 10, 64)

		opsPerSec := 0.0
		if nsPerOp > 0 {
			opsPerSec = 1e9 / nsPerOp
		}

		benchmarks = append(benchmarks, Benchmark{
			Name:        match[1],
			NsPerOp:     nsPerOp,
			OpsPerSec:   opsPerSec,
			BytesPerOp:  bytesPerOp,
			AllocsPerOp: allocsPerOp,
		})
	}

	return benchmarks
}

func calculateSummary(groups map[string]Group) Summary {
	var summary Summary

	for _, b := range groups["session"].Benchmarks {
		switch b.Name {
		case "BenchmarkSession_Sequential":
			summary.SessionsPerSec = b.OpsPerSec
			summary.SessionLatencyNs = b.NsPerOp
		case "BenchmarkSession_Parallel":
			summary.ParallelSessionsPerSec = b.OpsPerSec
		}
	}
	for _, b := range groups["client"].Benchmarks {
		switch b.Name {
		case "BenchmarkClient_PublishQoS/QoS0":
			summary.QoS0OpsPerSec = b.OpsPerSec
		case "BenchmarkClient_PublishQoS/QoS1":
			summary.QoS1OpsPerSec = b.OpsPerSec
		case "BenchmarkClient_PublishQoS/QoS2":
			summary.QoS2OpsPerSec = b.OpsPerSec
		}
	}

	return summary
}

func writeJSON(results BenchmarkResults, path string) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("Error writing %s: %v\n", path, err)
	}
}

func writeMarkdown(results BenchmarkResults, path string) {
	var sb strings.Builder
	title := cases.Title(language.English)

	sb.WriteString("# mqttswarm Benchmark Results\n\n")
	fmt.Fprintf(&sb, "**Generated**: %s\n\n", results.Timestamp)
	sb.WriteString("## Environment\n\n")
	fmt.Fprintf(&sb, "- **OS**: %s/%s\n", results.Environment.OS, results.Environment.Arch)
	fmt.Fprintf(&sb, "- **CPU**: %s (%d cores)\n", results.Environment.CPU, results.Environment.NumCPU)
	fmt.Fprintf(&sb, "- **Go**: %s\n\n", results.Environment.GoVersion)

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Measure | Value |\n")
	sb.WriteString("|---------|-------|\n")
	fmt.Fprintf(&sb, "| Sessions (sequential) | %.0f/s, %.2fms each |\n",
		results.Summary.SessionsPerSec, results.Summary.SessionLatencyNs/1e6)
	fmt.Fprintf(&sb, "| Sessions (parallel) | %.0f/s |\n", results.Summary.ParallelSessionsPerSec)
	fmt.Fprintf(&sb, "| Publish QoS0 / QoS1 / QoS2 | %.0f / %.0f / %.0f msg/s |\n\n",
		results.Summary.QoS0OpsPerSec, results.Summary.QoS1OpsPerSec, results.Summary.QoS2OpsPerSec)

	for _, name := range sortedGroupNames() {
		fmt.Fprintf(&sb, "## %s\n\n", title.String(name))
		sb.WriteString("| Benchmark | ops/sec | ns/op | B/op | allocs/op |\n")
		sb.WriteString("|-----------|---------|-------|------|----------|\n")
		for _, b := range results.Groups[name].Benchmarks {
			fmt.Fprintf(&sb, "| %s | %.0f | %.0f | %d | %d |\n",
				b.Name, b.OpsPerSec, b.NsPerOp, b.BytesPerOp, b.AllocsPerOp)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Reproducing\n\n")
	sb.WriteString("```bash\n")
	sb.WriteString("go run benchmarks/run_benchmarks.go\n")
	sb.WriteString("# Or a single group:\n")
	sb.WriteString("go test -run='^$' -bench=BenchmarkSession -benchtime=2s -benchmem ./tests/performance/...\n")
	sb.WriteString("```\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		fmt.Printf("Error writing %s: %v\n", path, err)
	}
}

func printSummary(results BenchmarkResults) {
	fmt.Println()
	fmt.Println("==========================================")
	fmt.Println("              SUMMARY")
	fmt.Println("==========================================")
	fmt.Printf("Sessions:  %.0f/s sequential (%.2fms), %.0f/s parallel\n",
		results.Summary.SessionsPerSec,
		results.Summary.SessionLatencyNs/1e6,
		results.Summary.ParallelSessionsPerSec)
	fmt.Printf("Publish:   %.0f QoS0, %.0f QoS1, %.0f QoS2 msg/s\n",
		results.Summary.QoS0OpsPerSec,
		results.Summary.QoS1OpsPerSec,
		results.Summary.QoS2OpsPerSec)
	fmt.Println("==========================================")
}
