package users

import "time"

// User is the stored profile behind a signed-in account. Guest sessions never
// get a row here; they exist only as "guest:<uuid>" owner IDs on documents and
// reports until claimed.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	GivenName  string    `json:"givenName"`
	FamilyName string    `json:"familyName"`
	PictureURL string    `json:"pictureUrl"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
