package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/limaJavier/coursecomb/pkg/model"
)

const (
	sheetName     = "Timetable"
	minimumBlocks = 18 // The grid always covers 09:00-18:00
)

// Workbook renders the sections of a combination as a weekday by half-hour grid
func Workbook(sections []model.Section, title string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	//** Column widths
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", colName(model.Weekdays), 24)

	//** Styles
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	sectionStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	//** Title and header rows
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(model.Weekdays), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)
	for day, name := range model.DayNames {
		f.SetCellValue(sheetName, cell(colName(day+1), 2), name)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(model.Weekdays), 2), headerStyle)

	//** Time column
	blocks := minimumBlocks
	for _, section := range sections {
		for _, intervals := range section.Occupancy {
			for _, interval := range intervals {
				_, last := blockRange(interval)
				blocks = max(blocks, last)
			}
		}
	}
	for block := range blocks {
		minutes := model.BlockStart + block*model.BlockSize
		f.SetCellValue(sheetName, cell("A", blockRow(block)), fmt.Sprintf("%02d:%02d", minutes/60, minutes%60))
	}

	//** Sections
	for _, section := range sections {
		text := fmt.Sprintf("%v (%v-%v)", section.Name, section.Code, section.Number)
		for day, intervals := range section.Occupancy {
			col := colName(day + 1)
			for _, interval := range intervals {
				first, last := blockRange(interval)
				if last <= first {
					continue
				}
				top, bottom := cell(col, blockRow(first)), cell(col, blockRow(last-1))
				if err := f.SetCellValue(sheetName, top, text); err != nil {
					return nil, err
				}
				if last-first > 1 {
					if err := f.MergeCell(sheetName, top, bottom); err != nil {
						return nil, err
					}
				}
				f.SetCellStyle(sheetName, top, bottom, sectionStyle)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("cannot write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Blocks covered by interval, [first, last)
func blockRange(interval model.Interval) (int, int) {
	return int(interval.Start-model.BlockStart) / model.BlockSize, int(interval.End-model.BlockStart) / model.BlockSize
}

// Rows 1 and 2 hold title and header
func blockRow(block int) int {
	return block + 3
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
