package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karmanspace/tracker/internal/search"
)

// archiveDateFormat matches how resolved requests are dated in listings.
const archiveDateFormat = "Mon Jan 02 15:04:05 MST 2006"

// ArchiveRecord is the immutable record of a resolved request.
type ArchiveRecord struct {
	// RecordID stays unique even when request ids wrap around.
	RecordID   string    `json:"record_id"`
	Archived   Request   `json:"archived"`
	Cascaded   []Request `json:"cascaded,omitempty"`
	Solution   string    `json:"solution"`
	ResolvedAt time.Time `json:"resolved_at"`
}

func newArchiveRecord(archived Request, solution string, at time.Time) ArchiveRecord {
	return ArchiveRecord{
		RecordID:   uuid.NewString(),
		Archived:   archived,
		Solution:   solution,
		ResolvedAt: at,
	}
}

// String renders the record as its date, the request line and the solution.
func (r ArchiveRecord) String() string {
	return fmt.Sprintf("%s\n%s\nSolution: %s", r.ResolvedAt.Format(archiveDateFormat), r.Archived.Headline(), r.Solution)
}

// MatchPercentage scores the archived request's details against query.
func (r ArchiveRecord) MatchPercentage(query string) int {
	return search.MatchPercentage(r.Archived.Details, query)
}

// SolutionMatchPercentage scores the solution text against query.
func (r ArchiveRecord) SolutionMatchPercentage(query string) int {
	return search.MatchPercentage(r.Solution, query)
}
