package model

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// RawSection mirrors one record of the registrar's section listing
type RawSection struct {
	Row       uint64 `mapstructure:"RNUM"`
	Code      string `mapstructure:"SBJT_NO"`
	Number    string `mapstructure:"CLSS_NO"`
	Name      string `mapstructure:"SBJT_NM"`
	Professor string `mapstructure:"PROF_NM"`
	Credit    string `mapstructure:"PNT"`
	TimePlace string `mapstructure:"TLSN_TIME"`
}

// RawCatalog mirrors the registrar's listing response
type RawCatalog struct {
	Total   uint64       `mapstructure:"total"`
	Records string       `mapstructure:"records"`
	User    []RawSection `mapstructure:"user"`
}

// CsvSection is one row of the flat catalog export
type CsvSection struct {
	Id        uint64 `csv:"id"`
	Code      string `csv:"code"`
	Number    uint64 `csv:"number"`
	Name      string `csv:"name"`
	Professor string `csv:"professor"`
	Credit    uint64 `csv:"credit"`
	TimePlace string `csv:"time_place"`
}

func CatalogFromJson(file string) ([]Section, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var catalogJson map[string]any
	if err := json.Unmarshal(bytes, &catalogJson); err != nil {
		return nil, err
	}

	var rawCatalog RawCatalog
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true, // The registrar sends numbers as strings and vice versa
		Result:           &rawCatalog,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(catalogJson); err != nil {
		return nil, fmt.Errorf("cannot decode catalog %q: %w", file, err)
	}

	return ProcessRawCatalog(rawCatalog)
}

func CatalogFromCsv(file string, delimiter rune) ([]Section, error) {
	csvFile, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	reader := csv.NewReader(csvFile)
	reader.Comma = delimiter

	rows := []*CsvSection{}
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("cannot parse catalog %q: %w", file, err)
	}

	return ProcessCsvCatalog(rows)
}

// LoadCatalog dispatches on format, which is either "json" or "csv"
func LoadCatalog(file, format string, delimiter rune) ([]Section, error) {
	switch strings.ToLower(format) {
	case "json":
		return CatalogFromJson(file)
	case "csv":
		return CatalogFromCsv(file, delimiter)
	default:
		return nil, fmt.Errorf("unknown catalog format %q", format)
	}
}

func ProcessRawCatalog(rawCatalog RawCatalog) ([]Section, error) {
	sections := make([]Section, 0, len(rawCatalog.User))
	for i, raw := range rawCatalog.User {
		//** Identify section
		// Rows are 1-based in the listing; fall back to the position when the row number is missing
		id := uint64(i)
		if raw.Row > 0 {
			id = raw.Row - 1
		}

		number, err := strconv.ParseUint(strings.TrimSpace(raw.Number), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("section %v of %q has an invalid class number %q: %w", id, raw.Code, raw.Number, err)
		}

		credit := uint64(0)
		if raw.Credit != "" {
			value, err := strconv.ParseFloat(strings.TrimSpace(raw.Credit), 64)
			if err != nil {
				return nil, fmt.Errorf("section %v of %q has an invalid credit %q: %w", id, raw.Code, raw.Credit, err)
			}
			credit = uint64(math.Max(value, 0))
		}

		//** Encode occupancy
		section, err := NewSection(id, strings.TrimSpace(raw.Code), number, raw.Name, raw.Professor, credit, raw.TimePlace)
		if err != nil {
			return nil, fmt.Errorf("section %v of %q: %w", id, raw.Code, err)
		}
		sections = append(sections, section)
	}

	if err := checkUniqueIds(sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func ProcessCsvCatalog(rows []*CsvSection) ([]Section, error) {
	sections := make([]Section, 0, len(rows))
	for _, row := range rows {
		section, err := NewSection(row.Id, strings.TrimSpace(row.Code), row.Number, row.Name, row.Professor, row.Credit, row.TimePlace)
		if err != nil {
			return nil, fmt.Errorf("section %v of %q: %w", row.Id, row.Code, err)
		}
		sections = append(sections, section)
	}

	if err := checkUniqueIds(sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// Section ids are what combinations are made of, two sections sharing one would be indistinguishable
func checkUniqueIds(sections []Section) error {
	duplicates := lo.FindDuplicatesBy(sections, func(section Section) uint64 {
		return section.Id
	})
	if len(duplicates) > 0 {
		return fmt.Errorf("duplicate section id %v (code %q)", duplicates[0].Id, duplicates[0].Code)
	}
	return nil
}

// ToCsv flattens sections back into catalog rows
func ToCsv(sections []Section) []*CsvSection {
	return lo.Map(sections, func(section Section, _ int) *CsvSection {
		return &CsvSection{
			Id:        section.Id,
			Code:      section.Code,
			Number:    section.Number,
			Name:      section.Name,
			Professor: section.Professor,
			Credit:    section.Credit,
			TimePlace: section.TimePlace,
		}
	})
}
