package books

type ListBooksQuery struct {
	Limit    int  `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset   int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	AuthorID *int `query:"author_id" json:"author_id,omitempty" validate:"omitempty,min=1"`
}

type ImportBookPayload struct {
	OpenLibraryID string `json:"openlibrary_id" validate:"required,max=50"`
}

type UpdateBookPayload struct {
	Title   *string  `json:"title,omitempty" validate:"omitempty,max=300"`
	Summary *string  `json:"summary,omitempty" validate:"omitempty,max=5000"`
	Rating  *float64 `json:"rating,omitempty" validate:"omitempty,min=0,max=5"`
}
