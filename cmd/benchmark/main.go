package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/limaJavier/coursecomb/pkg/combinator"
	"github.com/limaJavier/coursecomb/pkg/model"
)

const (
	executablePath   = "../../bin/comb"
	catalogDirectory = "catalogs/"
	reportPath       = "benchmark_results.csv"
	MB               = 1024.0
)

type ResultType int

const (
	solved ResultType = iota
	unsatisfiable
	timeout
)

var (
	resultTypes = map[ResultType]string{
		solved:        "solved",
		unsatisfiable: "unsatisfiable",
		timeout:       "timeout",
	}
	weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}
)

type CatalogMetadata struct {
	Name            string
	Codes           int
	SectionsPerCode int
	Seed            uint64
}

type QueryShape struct {
	Required int
	Selected int
}

type BenchmarkResult struct {
	Catalog      string  `csv:"catalog"`
	Sections     int     `csv:"sections"`
	Slots        int     `csv:"slots"`
	Required     int     `csv:"required"`
	Selected     int     `csv:"selected"`
	Pooled       bool    `csv:"pooled"`
	Workers      int     `csv:"workers"`
	Combinations int     `csv:"combinations"`
	Duration     float64 `csv:"duration_ms"`    // Mean per query, in-process
	Wall         int64   `csv:"wall_ms"`        // Whole cli run, only with -process
	Memory       float32 `csv:"memory_mb"`      // Peak resident set of the cli run, only with -process
	Cpu          int64   `csv:"cpu_percentage"` // Only with -process
	Result       string  `csv:"result"`
}

func main() {
	workersPtr := flag.Int("workers", 4, "Concurrent queries per measurement")
	repetitionsPtr := flag.Int("repetitions", 20, "Queries per measurement")
	timeoutPtr := flag.Duration("timeout", combinator.DefaultTimeout, "Budget of a single query")
	processPtr := flag.Bool("process", false, "Also measure the cli executable with /usr/bin/time")
	flag.Parse()

	catalogs := getCatalogs()
	shapes := getShapes()

	if err := writeCatalogs(catalogs); err != nil {
		log.Fatalf("cannot write catalogs: %v", err)
	}

	results := make([]*BenchmarkResult, 0, len(catalogs)*len(shapes)*2)
	for _, catalog := range catalogs {
		sections, err := model.CatalogFromCsv(catalogPath(catalog), ',')
		if err != nil {
			log.Fatalf("cannot parse catalog file: %v", err)
		}

		for _, shape := range shapes {
			for _, pooled := range []bool{false, true} {
				fmt.Printf("Benchmarking catalog \"%v\" with %v required, %v selected and pooling %v\n", catalog.Name, shape.Required, shape.Selected, pooled)

				result, err := measure(sections, shape, pooled, *workersPtr, *repetitionsPtr, *timeoutPtr)
				if err != nil {
					log.Fatalf("an error occurred while benchmarking catalog \"%v\": %v", catalog.Name, err)
				}
				result.Catalog = catalog.Name

				if *processPtr {
					result.Wall, result.Memory, result.Cpu = measureProcess(catalog, shape, pooled)
				}
				results = append(results, result)
			}
		}
	}

	toCsv(results)
}

func getCatalogs() []CatalogMetadata {
	return []CatalogMetadata{
		{Name: "small", Codes: 20, SectionsPerCode: 3, Seed: 1},
		{Name: "medium", Codes: 120, SectionsPerCode: 5, Seed: 2},
		{Name: "large", Codes: 600, SectionsPerCode: 8, Seed: 3},
	}
}

func getShapes() []QueryShape {
	return []QueryShape{
		{Required: 3, Selected: 0},
		{Required: 5, Selected: 3},
		{Required: 6, Selected: 6},
	}
}

func catalogPath(catalog CatalogMetadata) string {
	return filepath.Join(catalogDirectory, catalog.Name+".csv")
}

func codeName(i int) string {
	return fmt.Sprintf("BC%03d", i)
}

// Builds a deterministic catalog: each section meets either twice a week (same time two days apart) for 90 minutes or once for 3 hours, between 09:00 and 18:00
func generateCatalog(catalog CatalogMetadata) ([]model.Section, error) {
	rng := rand.New(rand.NewPCG(catalog.Seed, catalog.Seed))
	sections := make([]model.Section, 0, catalog.Codes*catalog.SectionsPerCode)

	for code := range catalog.Codes {
		for number := range catalog.SectionsPerCode {
			var timePlace string
			room := fmt.Sprintf("R%v", rng.IntN(50))
			if rng.IntN(3) == 0 {
				day, start := rng.IntN(len(weekdays)), model.BlockStart+rng.IntN(13)*model.BlockSize
				timePlace = fragment(weekdays[day], start, start+180, room)
			} else {
				day, start := rng.IntN(3), model.BlockStart+rng.IntN(16)*model.BlockSize
				timePlace = fragment(weekdays[day], start, start+90, room) + fragment(weekdays[day+2], start, start+90, room)
			}

			section, err := model.NewSection(uint64(len(sections)), codeName(code), uint64(number+1), "Course "+codeName(code), "", 3, timePlace)
			if err != nil {
				return nil, err
			}
			sections = append(sections, section)
		}
	}
	return sections, nil
}

func fragment(day string, start, end int, room string) string {
	return fmt.Sprintf("%v%02d:%02d-%02d:%02d(%v)", day, start/60, start%60, end/60, end%60, room)
}

func writeCatalogs(catalogs []CatalogMetadata) error {
	if err := os.MkdirAll(catalogDirectory, 0755); err != nil {
		return err
	}

	var group errgroup.Group
	for _, catalog := range catalogs {
		group.Go(func() error {
			sections, err := generateCatalog(catalog)
			if err != nil {
				return err
			}
			file, err := os.Create(catalogPath(catalog))
			if err != nil {
				return err
			}
			defer file.Close()
			return gocsv.MarshalFile(model.ToCsv(sections), file)
		})
	}
	return group.Wait()
}

// Runs repetitions queries on workers goroutines against a single combinator and reports the mean duration
func measure(sections []model.Section, shape QueryShape, pooled bool, workers, repetitions int, budget time.Duration) (*BenchmarkResult, error) {
	comb, err := combinator.NewCombinator(sections, pooled)
	if err != nil {
		return nil, err
	}

	codes := lo.Uniq(lo.Map(sections, func(section model.Section, _ int) string { return section.Code }))
	required := codes[:shape.Required]
	selected := codes[shape.Required : shape.Required+shape.Selected]

	result := &BenchmarkResult{
		Sections: len(sections),
		Slots:    comb.Slots(),
		Required: shape.Required,
		Selected: shape.Selected,
		Pooled:   pooled,
		Workers:  workers,
		Result:   resultTypes[solved],
	}

	durations := make([]time.Duration, repetitions)
	counts := make([]int, repetitions)
	group, ctx := errgroup.WithContext(context.Background())
	group.SetLimit(workers)
	for i := range repetitions {
		group.Go(func() error {
			queryCtx, cancel := context.WithTimeout(ctx, budget)
			defer cancel()

			start := time.Now()
			combinations, err := combinator.CombineContext(queryCtx, comb, nil, required, selected)
			durations[i] = time.Since(start)
			counts[i] = len(combinations)
			return err
		})
	}

	err = group.Wait()
	switch {
	case errors.Is(err, combinator.ErrTimeout):
		result.Result = resultTypes[timeout]
		return result, nil
	case err != nil:
		return nil, err
	}

	if counts[0] == 0 {
		result.Result = resultTypes[unsatisfiable]
	}
	result.Combinations = counts[0]
	result.Duration = float64(lo.Sum(durations).Microseconds()) / float64(repetitions) / 1000
	return result, nil
}

// Runs the cli under /usr/bin/time -v and extracts wall clock, peak memory and cpu usage
func measureProcess(catalog CatalogMetadata, shape QueryShape, pooled bool) (duration int64, maxMemory float32, cpuPercentage int64) {
	codes := lo.Times(shape.Required+shape.Selected, codeName)
	cmd := exec.Command("/usr/bin/time", "-v", executablePath,
		"-file", catalogPath(catalog),
		"-req", strings.Join(codes[:shape.Required], ","),
		"-sel", strings.Join(codes[shape.Required:], ","),
		"-pooled="+strconv.FormatBool(pooled),
		"-out", os.DevNull,
		"-nofilter",
	)

	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	if cmd.ProcessState.ExitCode() != 10 && cmd.ProcessState.ExitCode() != 20 {
		log.Fatalf("an error occurred during the execution of \"comb\" at catalog \"%v\": %v\n", catalog.Name, stdErr.String())
	}

	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))
	return duration, maxMemory, cpuPercentage
}

func toCsv(results []*BenchmarkResult) {
	file, err := os.Create(reportPath)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		log.Panicf("cannot write CSV report: %v", err)
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

// Parses h:mm:ss.hh or m:ss.hh into milliseconds
func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsParts := strings.Split(parts[len(parts)-1], ".")

	seconds := lo.Must(strconv.Atoi(secondsParts[0]))
	hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
	switch len(parts) {
	case 3:
		seconds += lo.Must(strconv.Atoi(parts[0]))*3600 + lo.Must(strconv.Atoi(parts[1]))*60
	case 2:
		seconds += lo.Must(strconv.Atoi(parts[0])) * 60
	default:
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return int64(seconds)*1000 + int64(hundredthOfSeconds*10)
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.TrimSpace(strings.Split(line, ":")[1])
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32)) / MB)
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.TrimSuffix(strings.TrimSpace(strings.Split(line, ":")[1]), "%")
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
