// ViolationsData is a paginated response payload for the violations list.
package dto

import "speedgate/internal/model"

type ViolationsData struct {
	Violations  []model.Violation `json:"violations"`
	Size        int64             `json:"size"`
	Length      int               `json:"length"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Limit       int               `json:"pageSize"`
}
