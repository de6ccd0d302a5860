package class_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwalimu/darasa/core/class"
	dummydb "github.com/mwalimu/darasa/storage/database/dummy"
)

func setup(t *testing.T) (*class.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return class.NewService(dummydb.NewClassRepository(db)), db
}

func TestImportCSV(t *testing.T) {
	svc, db := setup(t)
	dummydb.AddCredit(db, class.Credit{Code: "firstaid", Label: "First Aid", Category: "safety"})

	csv := strings.Join([]string{
		"name,description,organizer,event_datetime,duration_minutes,credits",
		"Intro to First Aid,Basics,Jane Doe,2024-09-01 10:00,90,firstaid:1.5",
		"CPR Refresher,,John Roe,2024-09-02 14:00,45,",
		"Bad Duration,oops,Jane Doe,2024-09-03 09:00,zero,",
		"Unknown Credit,oops,Jane Doe,2024-09-04 09:00,30,nope:1",
		",missing name,Jane Doe,2024-09-05 09:00,30,",
	}, "\n") + "\n"

	res, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCSV() failed: %v", err)
	}

	assert.Len(t, res.Imported, 2)
	assert.Equal(t, "Intro to First Aid", res.Imported[0].Name)
	assert.Len(t, res.Imported[0].Credits, 1)
	assert.Equal(t, 1.5, res.Imported[0].Credits[0].Amount)
	assert.Equal(t, "CPR Refresher", res.Imported[1].Name)

	if assert.Len(t, res.Errors, 3) {
		assert.Equal(t, 4, res.Errors[0].Line)
		assert.Contains(t, res.Errors[0].Err, "duration_minutes")
		assert.Equal(t, 5, res.Errors[1].Line)
		assert.Contains(t, res.Errors[1].Err, "credit code")
		assert.Equal(t, 6, res.Errors[2].Line)
	}

	// failed rows were not persisted
	classes, err := svc.QueryAll(context.Background())
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	assert.Len(t, classes, 2)
}

func TestImportCSVBadHeader(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.ImportCSV(context.Background(), strings.NewReader("nope,nope\n"))
	assert.Error(t, err)
}

func TestCSVTemplateRoundTrip(t *testing.T) {
	svc, db := setup(t)
	dummydb.AddCredit(db, class.Credit{Code: "firstaid", Label: "First Aid", Category: "safety"})

	res, err := svc.ImportCSV(context.Background(), strings.NewReader(class.CSVTemplate()))
	if err != nil {
		t.Fatalf("ImportCSV() failed: %v", err)
	}
	assert.Len(t, res.Imported, 1)
	assert.Empty(t, res.Errors)
}
