package bulkimport

import (
	"strings"

	"opscore/internal/domain/attendance"
)

type cellIntent struct {
	status string
	late   bool
}

var cellCodes = map[string]cellIntent{
	"P":  {status: attendance.StatusPresent},
	"A":  {status: attendance.StatusAbsent},
	"W":  {status: attendance.StatusWeekoff},
	"L":  {status: attendance.StatusPresent, late: true},
	"H":  {status: attendance.StatusHalfDay},
	"HD": {status: attendance.StatusHalfDay},
}

// decodeCell maps a sheet code to a status. "L" is present with the late flag set.
func decodeCell(value string) (cellIntent, bool) {
	intent, ok := cellCodes[strings.ToUpper(strings.TrimSpace(value))]
	return intent, ok
}
