package domain

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type MovieFilter struct {
	Status     *MovieStatus
	CategoryID CategoryID
	Search     string
	SortBy     string
	SortOrder  SortOrder
	Limit      int
	Offset     int
}
