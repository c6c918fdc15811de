package model

type User struct {
	ID             string
	Name           string
	ProfilePicture string
	Points         int
	Rank           *int
}

// UserRef is the partial user the backend embeds in history records.
type UserRef struct {
	ID             string
	Name           string
	ProfilePicture string
}

type NewUser struct {
	Name           string
	ProfilePicture string
}
