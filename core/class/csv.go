package class

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core"
)

// CSV bulk import. Expected header:
//
//	name,description,organizer,event_datetime,duration_minutes,credits
//
// event_datetime uses "2006-01-02 15:04"; credits is a ";"-separated list of
// "CODE:AMOUNT" pairs and may be empty.
var csvHeader = []string{"name", "description", "organizer", "event_datetime", "duration_minutes", "credits"}

const csvDatetimeLayout = "2006-01-02 15:04"

type (
	// RowError reports a single rejected CSV row; Line is 1-based and counts
	// the header.
	RowError struct {
		Line int
		Err  string
	}

	ImportResult struct {
		Imported []Class
		Errors   []RowError
	}
)

// CSVTemplate returns the import template: the header plus one example row.
func CSVTemplate() string {
	return strings.Join(csvHeader, ",") + "\n" +
		"Intro to First Aid,Basics of emergency response,Jane Doe,2024-09-01 10:00,90,firstaid:1.5\n"
}

// ImportCSV reads classes from r and creates the valid ones. Row-level
// failures (bad fields, unknown credit codes, write errors) are collected
// per row and do not stop the import.
func (svc *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult

	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err != nil {
		return res, errors.Wrap(err, "reading CSV header")
	}
	if err := checkHeader(header); err != nil {
		return res, err
	}

	for line := 2; ; line++ {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Err: err.Error()})
			continue
		}

		nc, err := parseRow(record)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Err: err.Error()})
			continue
		}
		if err := nc.Validate(); err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Err: validationText(err)})
			continue
		}

		cls, err := svc.Create(ctx, nc)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Err: validationText(err)})
			continue
		}
		res.Imported = append(res.Imported, cls)
	}
	return res, nil
}

func checkHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return errors.Errorf("expected %d CSV columns, got %d", len(csvHeader), len(header))
	}
	for i, name := range csvHeader {
		if core.CleanString(header[i], true /* lower */) != name {
			return errors.Errorf("unexpected CSV column %q, want %q", header[i], name)
		}
	}
	return nil
}

func parseRow(record []string) (NewClass, error) {
	if len(record) != len(csvHeader) {
		return NewClass{}, errors.Errorf("expected %d fields, got %d", len(csvHeader), len(record))
	}

	eventDt, err := time.Parse(csvDatetimeLayout, core.CleanString(record[3]))
	if err != nil {
		return NewClass{}, errors.Errorf("invalid event_datetime %q (want %s)", record[3], csvDatetimeLayout)
	}
	duration, err := strconv.Atoi(core.CleanString(record[4]))
	if err != nil {
		return NewClass{}, errors.Errorf("invalid duration_minutes %q", record[4])
	}

	credits, err := ParseCredits(record[5])
	if err != nil {
		return NewClass{}, err
	}

	return NewClass{
		Name:            record[0],
		Description:     core.CleanString(record[1]),
		Organizer:       record[2],
		EventDatetime:   eventDt,
		DurationMinutes: duration,
		Credits:         credits,
	}, nil
}

// ParseCredits parses a ";"-separated list of "CODE:AMOUNT" pairs, the same
// syntax the CSV import and the class form use.
func ParseCredits(field string) ([]NewClassCredit, error) {
	field = core.CleanString(field)
	if field == "" {
		return nil, nil
	}

	var credits []NewClassCredit
	for _, pair := range strings.Split(field, ";") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid credit %q (want CODE:AMOUNT)", pair)
		}
		amount, err := strconv.ParseFloat(core.CleanString(parts[1]), 64)
		if err != nil || amount <= 0 {
			return nil, errors.Errorf("invalid credit amount %q", parts[1])
		}
		credits = append(credits, NewClassCredit{Code: parts[0], Amount: amount})
	}
	return credits, nil
}

// validationText flattens a validation error into a single row message.
func validationText(err error) string {
	switch vErr := errors.Cause(err).(type) {
	case *core.ValidationError:
		if len(vErr.Fields) > 0 {
			parts := make([]string, 0, len(vErr.Fields))
			for _, f := range vErr.Fields {
				parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Error))
			}
			return strings.Join(parts, "; ")
		}
	}
	return err.Error()
}
