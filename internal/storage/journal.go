package storage

import (
	"github.com/dgnsrekt/diffjam/internal/types"
)

const journalName = "diffjam"

// Journal routes capture and report records to per-endpoint JSONL files.
type Journal struct {
	writers *WriterRegistry
}

func NewJournal(writers *WriterRegistry) *Journal {
	return &Journal{writers: writers}
}

// WriteReport appends a rendered report under the segment of its session key.
func (j *Journal) WriteReport(rec types.ReportRecord) error {
	return j.writers.GetWriter(segmentForKey(rec.Key), KindReports, journalName).Write(rec)
}

// WriteCapture appends a captured exchange.
func (j *Journal) WriteCapture(rec *types.HTTPCapture) error {
	name := BrowserIDFromTargetID(rec.TabID)
	if name == "" {
		name = journalName
	}
	return j.writers.GetWriter(segmentForKey(rec.SessionKey), KindCaptures, name).Write(rec)
}

func segmentForKey(key string) string {
	k := types.ParseSessionKey(key)
	seg, err := TransformURLToPathSegment(k.URL)
	if err != nil || seg == "" {
		return "unknown"
	}
	if k.Method != "" {
		seg = k.Method + "_" + seg
	}
	return seg
}
