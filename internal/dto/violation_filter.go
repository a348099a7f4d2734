// ViolationFilters describe user-provided filters to narrow the violation list.
package dto

import "time"

type ViolationFilters struct {
	Plate      string
	MinSpeed   float64
	DateAfter  time.Time
	DateBefore time.Time
	Limit      int
	Offset     int
}
