package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/coursecomb/config"
	"github.com/limaJavier/coursecomb/pkg/combinator"
	"github.com/limaJavier/coursecomb/pkg/export"
	"github.com/limaJavier/coursecomb/pkg/filter"
	applogger "github.com/limaJavier/coursecomb/pkg/logger"
	"github.com/limaJavier/coursecomb/pkg/model"
)

// Exit codes
const (
	solved       = 10
	verifyFailed = 15
	noSolution   = 20
)

var validFormats = []string{"json", "csv"}

type sectionOutput struct {
	Id        uint64 `json:"id"`
	Code      string `json:"code"`
	Number    uint64 `json:"number"`
	Name      string `json:"name"`
	TimePlace string `json:"time_place"`
}

type combinationOutput struct {
	Blocks   int             `json:"blocks"`
	Sections []sectionOutput `json:"sections"`
}

func main() {
	// Define arguments
	filePathPtr := flag.String("file", "", "Path to the catalog file")
	formatPtr := flag.String("format", "", "Catalog format: \"json\" (registrar listing) or \"csv\"; if empty, it's taken from the file extension")
	delimiterPtr := flag.String("delimiter", ",", "Field delimiter of csv catalogs, where \",\" is the default")
	fixPtr := flag.String("fix", "", "Comma-separated fixed sections as CODE:POSITION, where POSITION is 0-based in section-number order")
	reqPtr := flag.String("req", "", "Comma-separated required course codes")
	selPtr := flag.String("sel", "", "Comma-separated selected (optional) course codes")
	rankPtr := flag.Int("rank", 0, "Keep only the N combinations occupying the fewest blocks; 0 keeps them all")
	timeoutPtr := flag.Duration("timeout", combinator.DefaultTimeout, "Give up after this long, where 10s is the default")
	pooledPtr := flag.Bool("pooled", true, "Recycle search buffers between queries")
	noFilterPtr := flag.Bool("nofilter", false, "Skip the query policy (list sizes and forbidden codes)")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	icsPathPtr := flag.String("ics", "", "Write the first combination as an iCalendar file to this path")
	xlsxPathPtr := flag.String("xlsx", "", "Write the first combination as an xlsx timetable to this path")
	verbosePtr := flag.Bool("verbose", false, "Log progress to the Standard Error")
	flag.Parse()

	filePath := *filePathPtr
	format := strings.ToLower(*formatPtr)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	}
	delimiter := []rune(*delimiterPtr)

	// Validate arguments
	if filePath == "" {
		log.Fatal("a catalog file must be specified")
	} else if !slices.Contains(validFormats, format) {
		log.Fatalf("%v is not a valid catalog format", format)
	} else if format == "csv" && len(delimiter) != 1 {
		log.Fatalf("the delimiter must be a single character: %q", *delimiterPtr)
	} else if *rankPtr < 0 {
		log.Fatalf("rank cannot be negative: %v", *rankPtr)
	} else if *timeoutPtr <= 0 {
		log.Fatalf("timeout must be positive: %v", *timeoutPtr)
	}

	fixed, err := parseFixed(*fixPtr)
	if err != nil {
		log.Fatalf("cannot parse fixed sections: %v", err)
	}
	required, selected := splitCodes(*reqPtr), splitCodes(*selPtr)

	if !*noFilterPtr {
		if err := filter.DefaultPolicy().Check(required, selected); err != nil {
			log.Fatal(err)
		}
	}

	logger := zap.NewNop()
	if *verbosePtr {
		logger, err = applogger.NewLogger(&config.LogConfig{Level: "debug", Format: "console"})
		if err != nil {
			log.Fatal(err)
		}
		defer logger.Sync()
	}

	// Extract catalog
	sections, err := model.LoadCatalog(filePath, format, lo.FirstOr(delimiter, ','))
	if err != nil {
		log.Fatalf("cannot parse catalog file: %v", err)
	}
	catalog := lo.SliceToMap(sections, func(section model.Section) (uint64, model.Section) {
		return section.Id, section
	})

	// Initialize engine
	start := time.Now()
	comb, err := combinator.NewCombinator(sections, *pooledPtr)
	if err != nil {
		log.Fatalf("cannot build combinator: %v", err)
	}
	logger.Debug("combinator built",
		zap.Int("sections", len(sections)),
		zap.Int("slots", comb.Slots()),
		zap.Duration("elapsed", time.Since(start)),
	)

	// Find combinations
	ctx, cancel := context.WithTimeout(context.Background(), *timeoutPtr)
	defer cancel()

	start = time.Now()
	combinations, err := combinator.CombineContext(ctx, comb, fixed, required, selected)
	if errors.Is(err, combinator.ErrTimeout) {
		log.Fatalf("no answer within %v", *timeoutPtr)
	} else if err != nil {
		log.Fatalf("an error occurred while combining: %v", err)
	} else if combinations == nil {
		logger.Debug("no combination found", zap.Duration("elapsed", time.Since(start)))
		os.Exit(noSolution)
	}
	logger.Debug("combinations found", zap.Int("total", len(combinations)), zap.Duration("elapsed", time.Since(start)))

	// Verify combinations correctness
	for _, combination := range combinations {
		if !comb.Verify(combination, fixed, required, selected) {
			os.Exit(verifyFailed)
		}
	}

	if *rankPtr > 0 {
		combinations = combinator.Rank(comb, combinations, *rankPtr)
	}

	// Build output from combinations
	output := lo.Map(combinations, func(combination []uint64, _ int) combinationOutput {
		return combinationOutput{
			Blocks: combinator.Occupancy(comb, combination),
			Sections: lo.Map(combination, func(id uint64, _ int) sectionOutput {
				section := catalog[id]
				return sectionOutput{
					Id:        section.Id,
					Code:      section.Code,
					Number:    section.Number,
					Name:      section.Name,
					TimePlace: section.TimePlace,
				}
			}),
		}
	})

	outputJson, err := json.Marshal(output)
	if err != nil {
		log.Fatalf("an error occurred while building output json: %v", err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if *outFilePathPtr == "" {
		fmt.Println(string(outputJson))
	} else if err := os.WriteFile(*outFilePathPtr, outputJson, 0666); err != nil {
		log.Fatalf("an error occurred while writing to the output file: %v", err)
	}

	// Exports
	first := lo.Map(combinations[0], func(id uint64, _ int) model.Section { return catalog[id] })
	if *icsPathPtr != "" {
		content, err := export.Calendar(first, time.Now(), 16)
		if err != nil {
			log.Fatalf("cannot build calendar: %v", err)
		}
		if err := os.WriteFile(*icsPathPtr, []byte(content), 0666); err != nil {
			log.Fatalf("an error occurred while writing the calendar: %v", err)
		}
	}
	if *xlsxPathPtr != "" {
		content, err := export.Workbook(first, "Timetable")
		if err != nil {
			log.Fatalf("cannot build workbook: %v", err)
		}
		if err := os.WriteFile(*xlsxPathPtr, content, 0666); err != nil {
			log.Fatalf("an error occurred while writing the workbook: %v", err)
		}
	}

	os.Exit(solved)
}

func splitCodes(raw string) []string {
	return lo.Compact(lo.Map(strings.Split(raw, ","), func(code string, _ int) string {
		return strings.TrimSpace(code)
	}))
}

// Parses "CODE:POSITION,CODE:POSITION"
func parseFixed(raw string) ([]combinator.Fixed, error) {
	fixed := make([]combinator.Fixed, 0)
	for _, entry := range splitCodes(raw) {
		separator := strings.LastIndex(entry, ":")
		if separator <= 0 {
			return nil, fmt.Errorf("%q is not CODE:POSITION", entry)
		}
		position, err := strconv.Atoi(entry[separator+1:])
		if err != nil {
			return nil, fmt.Errorf("%q has an invalid position: %w", entry, err)
		}
		fixed = append(fixed, combinator.Fixed{Code: entry[:separator], Position: position})
	}
	return fixed, nil
}
