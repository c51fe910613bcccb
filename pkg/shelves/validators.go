package shelves

type AddBookPayload struct {
	OpenLibraryID string `json:"openlibrary_id" validate:"required,max=50"`
}
