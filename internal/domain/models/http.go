package models

// BookAnalysisRequest asks for a void/wall scan of a symbol's cached book.
type BookAnalysisRequest struct {
	Symbol string `param:"symbol" validate:"required"`
}

// RecentEventsRequest asks for the newest archived events of a symbol.
type RecentEventsRequest struct {
	Symbol string `param:"symbol" validate:"required"`
	Limit  int    `query:"limit" default:"50" validate:"min=0,max=500"`
}
