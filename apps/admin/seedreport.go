package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/storage/sheets"
)

// seedReport scans every sheet once, seeds the ID counters the way the
// API server does at boot and prints the result per prefix.
func (cli *commandLine) seedReport() error {
	ctx := context.Background()

	client, err := sheets.NewClient(ctx, cli.conf.Sheets)
	if err != nil {
		return err
	}
	idgen := core.NewIDGenerator()
	eng := sheets.NewEngine(client, core.NewCache(), idgen, cli.conf.Sheets, cli.log)

	// instantiating the repositories registers their sheets with the engine
	sheets.NewStudentRepository(eng)
	sheets.NewClassRepository(eng)
	sheets.NewLectureRepository(eng)
	sheets.NewAttendanceRepository(eng)
	sheets.NewHomeworkRepository(eng)
	sheets.NewScoreRepository(eng)

	if err := eng.SeedIDGenerator(ctx); err != nil {
		return err
	}

	counters := idgen.Counters()
	prefixes := make([]string, 0, len(counters))
	for prefix := range counters {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	if len(prefixes) == 0 {
		fmt.Println("no records found; all counters start at 1")
		return nil
	}
	for _, prefix := range prefixes {
		fmt.Printf("%-4s last=%d next=%s%d\n", prefix, counters[prefix], prefix, counters[prefix]+1)
	}
	return nil
}
